package main

import "time"

// Category is one of the two mutually-exclusive classifications an operator
// can assign to a task. Unclassified tasks simply have no assignment.
type Category string

const (
	CategoryCritical Category = "Critical Path"
	CategoryFloating Category = "Floating Task"
)

// Other returns the opposite category.
func (c Category) Other() Category {
	if c == CategoryCritical {
		return CategoryFloating
	}
	return CategoryCritical
}

// ParsedTask is one sticky note parsed into its four positional fields.
// Immutable after parsing; categorization happens later in the session.
type ParsedTask struct {
	Task   string
	Start  time.Time
	End    time.Time
	Person string
	Color  string // sticky note fill color, passthrough only
}

// DurationDays is the bar length in whole days. May be zero or negative
// when End precedes Start; the chart draws whatever the notes say.
func (t ParsedTask) DurationDays() int {
	return int(t.End.Sub(t.Start).Hours() / 24)
}

// RenderRow is one finalized task paired with its assigned category,
// in session index order.
type RenderRow struct {
	ParsedTask
	Category Category
}

// RenderRequest is the sole input to the renderer: the finalized subset of
// session tasks that carry an assignment, ascending by task index.
type RenderRequest struct {
	Rows []RenderRow
}

// StickyNote is one raw item from the board, before parsing.
type StickyNote struct {
	Content   string
	FillColor string
}

// RenderRecord is one completed render, persisted for /gantt-history.
type RenderRecord struct {
	ID            int64
	ChannelID     string
	UserID        string
	UserName      string
	TaskCount     int
	CriticalCount int
	FloatingCount int
	ChartPath     string
	ExportPath    string
	RenderedAt    time.Time
}
