package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Session-level usage errors. All of them are recoverable: the front end
// reports them back to the operator and the session stays usable.
var (
	ErrNoTasks               = errors.New("no tasks to classify")
	ErrNoActiveCategory      = errors.New("no active category selected")
	ErrCrossCategoryConflict = errors.New("task already assigned to the other category")
	ErrEmptySelection        = errors.New("no tasks selected")
)

// ToggleOutcome tells the front end what a successful Toggle actually did.
type ToggleOutcome int

const (
	ToggledOn ToggleOutcome = iota
	ToggledOff
)

// OptionState is the three-way render state of one task in the options view.
type OptionState int

const (
	OptionUnselected OptionState = iota
	OptionSelectedActive
	OptionSelectedOther
)

// TaskOption is one selectable row of the options view. Assigned is only
// meaningful when State is not OptionUnselected.
type TaskOption struct {
	Index    int
	Task     ParsedTask
	State    OptionState
	Assigned Category
}

// ClassificationSession holds the per-conversation classification state:
// the parsed task list (fixed for the session lifetime), the operator's
// in-progress category assignment, and the currently active category.
//
// Invariant: a task index is assigned to at most one category at any time.
type ClassificationSession struct {
	mu         sync.Mutex
	tasks      []ParsedTask
	assignment map[int]Category
	active     Category
	hasActive  bool
}

// NewClassificationSession starts a session over the given tasks. The caller
// must have confirmed at least one parsed task exists.
func NewClassificationSession(tasks []ParsedTask) (*ClassificationSession, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	return &ClassificationSession{
		tasks:      tasks,
		assignment: make(map[int]Category),
	}, nil
}

// Tasks returns the session's task list in arrival order.
func (s *ClassificationSession) Tasks() []ParsedTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ParsedTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// SetActiveCategory switches which category subsequent toggles assign to.
func (s *ClassificationSession) SetActiveCategory(c Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = c
	s.hasActive = true
}

// ActiveCategory reports the current active category, if one is set.
func (s *ClassificationSession) ActiveCategory() (Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.hasActive
}

// Toggle flips task index's membership in the active category.
//
// Three outcomes, all distinguishable for UI feedback:
//   - the index was unassigned: it is assigned to the active category (ToggledOn)
//   - the index was assigned to the active category: it is unassigned (ToggledOff)
//   - the index is assigned to the other category: the toggle is refused with
//     ErrCrossCategoryConflict and the assignment is left untouched. The task
//     must be toggled off under the other category first; it is never moved
//     silently.
func (s *ClassificationSession) Toggle(index int) (ToggleOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasActive {
		return 0, ErrNoActiveCategory
	}
	if index < 0 || index >= len(s.tasks) {
		return 0, fmt.Errorf("task index %d out of range", index)
	}

	assigned, ok := s.assignment[index]
	if ok && assigned != s.active {
		return 0, ErrCrossCategoryConflict
	}
	if ok {
		delete(s.assignment, index)
		return ToggledOff, nil
	}
	s.assignment[index] = s.active
	return ToggledOn, nil
}

// Reset clears the assignment. Tasks and the active category are kept.
func (s *ClassificationSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignment = make(map[int]Category)
}

// HasSelection reports whether any task is currently assigned.
func (s *ClassificationSession) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignment) > 0
}

// OptionsView produces the per-task render state the front end turns into
// buttons. Tasks assigned to the other category come back as
// OptionSelectedOther so the UI can render them unselectable.
func (s *ClassificationSession) OptionsView() []TaskOption {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := make([]TaskOption, len(s.tasks))
	for i, task := range s.tasks {
		opt := TaskOption{Index: i, Task: task, State: OptionUnselected}
		if assigned, ok := s.assignment[i]; ok {
			opt.Assigned = assigned
			if s.hasActive && assigned == s.active {
				opt.State = OptionSelectedActive
			} else {
				opt.State = OptionSelectedOther
			}
		}
		options[i] = opt
	}
	return options
}

// ApplySuggestion fills in proposed categories for indices the operator has
// not touched. Existing assignments always win, so a suggestion can never
// move a task or break mutual exclusion. Returns how many were applied.
func (s *ClassificationSession) ApplySuggestion(proposed map[int]Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for i, c := range proposed {
		if i < 0 || i >= len(s.tasks) {
			continue
		}
		if _, taken := s.assignment[i]; taken {
			continue
		}
		s.assignment[i] = c
		applied++
	}
	return applied
}

// Finalize projects the assignment onto the task list and returns the render
// request: every assigned task paired with its category, ascending by index.
// Finalizing does not consume the session; the operator can keep selecting
// and finalize again for another export.
func (s *ClassificationSession) Finalize() (RenderRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.assignment) == 0 {
		return RenderRequest{}, ErrEmptySelection
	}

	indices := make([]int, 0, len(s.assignment))
	for i := range s.assignment {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	rows := make([]RenderRow, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, RenderRow{ParsedTask: s.tasks[i], Category: s.assignment[i]})
	}
	return RenderRequest{Rows: rows}, nil
}

// SessionRegistry maps a conversation key (Slack user ID) to its live
// classification session. Lookup and creation are safe across conversations;
// each session guards its own state.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*ClassificationSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*ClassificationSession)}
}

// Lookup returns the session for key, if one exists.
func (r *SessionRegistry) Lookup(key string) (*ClassificationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Store replaces the session for key.
func (r *SessionRegistry) Store(key string, s *ClassificationSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = s
}

// Evict drops the session for key, if any.
func (r *SessionRegistry) Evict(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}
