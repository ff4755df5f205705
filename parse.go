package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const taskDateLayout = "2006-01-02"

// ErrMalformedNote marks a sticky note that does not follow the
// "Task | Start | End | Person" convention. Malformed notes are skipped
// individually; they never abort the rest of the batch.
type ErrMalformedNote struct {
	Reason string
}

func (e ErrMalformedNote) Error() string {
	return "malformed note: " + e.Reason
}

// ParseNote turns one raw sticky note into a ParsedTask. The note body may
// contain HTML markup (Miro wraps content in <p> tags); it is stripped before
// the fields are split on "|".
func ParseNote(note StickyNote) (ParsedTask, error) {
	text := stripMarkup(note.Content)

	if !strings.Contains(text, "|") {
		return ParsedTask{}, ErrMalformedNote{Reason: "no field separator"}
	}

	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 4 {
		return ParsedTask{}, ErrMalformedNote{Reason: fmt.Sprintf("expected 4 fields, got %d", len(parts))}
	}

	taskName, startStr, endStr, person := parts[0], parts[1], parts[2], parts[3]
	if taskName == "" || person == "" {
		return ParsedTask{}, ErrMalformedNote{Reason: "empty task or person field"}
	}

	start, err := parseTaskDate(startStr)
	if err != nil {
		return ParsedTask{}, ErrMalformedNote{Reason: fmt.Sprintf("bad start date %q: %v", startStr, err)}
	}
	end, err := parseTaskDate(endStr)
	if err != nil {
		return ParsedTask{}, ErrMalformedNote{Reason: fmt.Sprintf("bad end date %q: %v", endStr, err)}
	}

	// End before Start is accepted as-is and shows up as a zero-length or
	// reversed bar. The board is the source of truth, even when it is wrong.
	return ParsedTask{
		Task:   taskName,
		Start:  start,
		End:    end,
		Person: person,
		Color:  note.FillColor,
	}, nil
}

// ParseNotes parses a batch, logging and skipping malformed notes.
func ParseNotes(notes []StickyNote) []ParsedTask {
	var tasks []ParsedTask
	skipped := 0
	for _, note := range notes {
		task, err := ParseNote(note)
		if err != nil {
			log.Printf("parse skipped note: %v", err)
			skipped++
			continue
		}
		tasks = append(tasks, task)
	}
	if skipped > 0 {
		log.Printf("parse done tasks=%d skipped=%d", len(tasks), skipped)
	}
	return tasks
}

func parseTaskDate(s string) (time.Time, error) {
	if len(s) != len(taskDateLayout) {
		return time.Time{}, fmt.Errorf("expected %d characters", len(taskDateLayout))
	}
	return time.Parse(taskDateLayout, s)
}

// stripMarkup flattens any HTML in a note body down to its text content.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(z.Token().Data)
		}
	}
	return strings.TrimSpace(b.String())
}
