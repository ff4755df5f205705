package main

import (
	"errors"
	"testing"
	"time"
)

func day(d string) time.Time {
	t, err := time.Parse(taskDateLayout, d)
	if err != nil {
		panic(err)
	}
	return t
}

// Three tasks A, B, C used throughout the session tests.
func newTestSession(t *testing.T) *ClassificationSession {
	t.Helper()
	tasks := []ParsedTask{
		{Task: "A", Start: day("2025-01-01"), End: day("2025-01-03"), Person: "Alice"},
		{Task: "B", Start: day("2025-01-02"), End: day("2025-01-05"), Person: "Bob"},
		{Task: "C", Start: day("2025-01-04"), End: day("2025-01-04"), Person: "Carol"},
	}
	sess, err := NewClassificationSession(tasks)
	if err != nil {
		t.Fatalf("NewClassificationSession failed: %v", err)
	}
	return sess
}

func TestNewClassificationSessionRequiresTasks(t *testing.T) {
	if _, err := NewClassificationSession(nil); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("expected ErrNoTasks, got %v", err)
	}
}

func TestToggleRequiresActiveCategory(t *testing.T) {
	sess := newTestSession(t)

	if _, err := sess.Toggle(0); !errors.Is(err, ErrNoActiveCategory) {
		t.Fatalf("expected ErrNoActiveCategory, got %v", err)
	}
	if sess.HasSelection() {
		t.Fatal("failed toggle must not mutate the assignment")
	}
}

func TestToggleOnThenOffRestoresPriorState(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)

	outcome, err := sess.Toggle(1)
	if err != nil || outcome != ToggledOn {
		t.Fatalf("expected ToggledOn, got outcome=%v err=%v", outcome, err)
	}
	outcome, err = sess.Toggle(1)
	if err != nil || outcome != ToggledOff {
		t.Fatalf("expected ToggledOff, got outcome=%v err=%v", outcome, err)
	}
	if sess.HasSelection() {
		t.Fatal("toggle on then off should restore the empty assignment")
	}
}

func TestToggleOutOfRange(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)

	if _, err := sess.Toggle(7); err == nil {
		t.Fatal("expected out-of-range toggle to fail")
	}
	if _, err := sess.Toggle(-1); err == nil {
		t.Fatal("expected negative index toggle to fail")
	}
}

func TestCrossCategoryConflictLeavesAssignmentUntouched(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)
	if _, err := sess.Toggle(0); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	sess.SetActiveCategory(CategoryFloating)
	if _, err := sess.Toggle(0); !errors.Is(err, ErrCrossCategoryConflict) {
		t.Fatalf("expected ErrCrossCategoryConflict, got %v", err)
	}

	// The original assignment survives and still finalizes as critical.
	req, err := sess.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(req.Rows) != 1 || req.Rows[0].Category != CategoryCritical {
		t.Fatalf("conflict must not move the task, got %+v", req.Rows)
	}
}

func TestOptionsViewThreeWayStates(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 0)
	sess.SetActiveCategory(CategoryFloating)
	mustToggle(t, sess, 1)

	options := sess.OptionsView()
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
	// Active category is Floating: index 0 is held by Critical (other),
	// index 1 by the active category, index 2 untouched.
	if options[0].State != OptionSelectedOther {
		t.Fatalf("index 0: expected OptionSelectedOther, got %v", options[0].State)
	}
	if options[1].State != OptionSelectedActive {
		t.Fatalf("index 1: expected OptionSelectedActive, got %v", options[1].State)
	}
	if options[2].State != OptionUnselected {
		t.Fatalf("index 2: expected OptionUnselected, got %v", options[2].State)
	}
}

func TestResetClearsAssignmentOnly(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryFloating)
	mustToggle(t, sess, 2)

	sess.Reset()

	if sess.HasSelection() {
		t.Fatal("reset should clear the assignment")
	}
	if len(sess.Tasks()) != 3 {
		t.Fatal("reset must not touch the task list")
	}
	if active, ok := sess.ActiveCategory(); !ok || active != CategoryFloating {
		t.Fatal("reset must not clear the active category")
	}
}

func TestFinalizeEmptySelection(t *testing.T) {
	sess := newTestSession(t)
	if _, err := sess.Finalize(); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestFinalizeProjectsInIndexOrder(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 0)
	mustToggle(t, sess, 2)
	sess.SetActiveCategory(CategoryFloating)
	mustToggle(t, sess, 1)

	req, err := sess.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(req.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(req.Rows))
	}

	want := []struct {
		task     string
		category Category
	}{
		{"A", CategoryCritical},
		{"B", CategoryFloating},
		{"C", CategoryCritical},
	}
	for i, w := range want {
		if req.Rows[i].Task != w.task || req.Rows[i].Category != w.category {
			t.Fatalf("row %d: expected %s:%s, got %s:%s",
				i, w.task, w.category, req.Rows[i].Task, req.Rows[i].Category)
		}
	}
}

func TestRefinalizeRecomputesFromCurrentAssignment(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 0)

	first, err := sess.Finalize()
	if err != nil {
		t.Fatalf("first Finalize failed: %v", err)
	}
	if len(first.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(first.Rows))
	}

	// Session stays alive after a render; more selecting is legal.
	mustToggle(t, sess, 2)
	second, err := sess.Finalize()
	if err != nil {
		t.Fatalf("second Finalize failed: %v", err)
	}
	if len(second.Rows) != 2 {
		t.Fatalf("re-finalize should see the new toggle, got %d rows", len(second.Rows))
	}
}

func TestMutualExclusionHoldsAcrossOperations(t *testing.T) {
	sess := newTestSession(t)

	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 0)
	mustToggle(t, sess, 1)
	sess.SetActiveCategory(CategoryFloating)
	_, _ = sess.Toggle(0) // refused
	_, _ = sess.Toggle(1) // refused
	mustToggle(t, sess, 2)
	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 1) // toggled off under its own category

	req, err := sess.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	seen := make(map[string]Category)
	for _, row := range req.Rows {
		if prev, dup := seen[row.Task]; dup {
			t.Fatalf("task %s appears in both %s and %s", row.Task, prev, row.Category)
		}
		seen[row.Task] = row.Category
	}
	if seen["A"] != CategoryCritical || seen["C"] != CategoryFloating {
		t.Fatalf("unexpected final assignment: %v", seen)
	}
	if _, ok := seen["B"]; ok {
		t.Fatal("task B was toggled off and must not be in the request")
	}
}

func TestApplySuggestionNeverOverridesOperator(t *testing.T) {
	sess := newTestSession(t)
	sess.SetActiveCategory(CategoryCritical)
	mustToggle(t, sess, 0)

	applied := sess.ApplySuggestion(map[int]Category{
		0: CategoryFloating, // operator already chose critical, must be kept
		1: CategoryFloating,
		9: CategoryCritical, // out of range, dropped
	})
	if applied != 1 {
		t.Fatalf("expected 1 applied suggestion, got %d", applied)
	}

	req, err := sess.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if req.Rows[0].Task != "A" || req.Rows[0].Category != CategoryCritical {
		t.Fatalf("suggestion overrode operator choice: %+v", req.Rows[0])
	}
	if req.Rows[1].Task != "B" || req.Rows[1].Category != CategoryFloating {
		t.Fatalf("suggestion not applied to unassigned index: %+v", req.Rows[1])
	}
}

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()

	if _, ok := registry.Lookup("U1"); ok {
		t.Fatal("expected empty registry")
	}

	sess := newTestSession(t)
	registry.Store("U1", sess)
	got, ok := registry.Lookup("U1")
	if !ok || got != sess {
		t.Fatal("expected stored session back")
	}
	if _, ok := registry.Lookup("U2"); ok {
		t.Fatal("sessions must not leak across conversation keys")
	}

	registry.Evict("U1")
	if _, ok := registry.Lookup("U1"); ok {
		t.Fatal("expected session evicted")
	}
}

func mustToggle(t *testing.T, sess *ClassificationSession, index int) {
	t.Helper()
	if _, err := sess.Toggle(index); err != nil {
		t.Fatalf("Toggle(%d) failed: %v", index, err)
	}
}
