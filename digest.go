package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// DigestResult summarizes one scheduled board sweep.
type DigestResult struct {
	TotalNotes int
	Parsed     int
	Malformed  int
	Tasks      []ParsedTask
}

// BuildDigest fetches the board and reports how much of it is parseable.
// It has no Slack dependency so the scheduler and tests share it.
func BuildDigest(cfg Config) (DigestResult, error) {
	notes, err := FetchStickyNotes(cfg)
	if err != nil {
		return DigestResult{}, fmt.Errorf("fetching board: %w", err)
	}

	tasks := ParseNotes(notes)
	return DigestResult{
		TotalNotes: len(notes),
		Parsed:     len(tasks),
		Malformed:  len(notes) - len(tasks),
		Tasks:      tasks,
	}, nil
}

// FormatDigestSummary returns a human-readable summary of a DigestResult.
func FormatDigestSummary(result DigestResult) string {
	if result.TotalNotes == 0 {
		return "Board digest: no sticky notes found on the board."
	}

	msg := fmt.Sprintf("Board digest: %d sticky notes, %d parseable tasks", result.TotalNotes, result.Parsed)
	if result.Malformed > 0 {
		msg += fmt.Sprintf(", %d malformed (expected `Task | Start | End | Person`)", result.Malformed)
	}
	msg += "."

	previewLimit := 8
	for i, t := range result.Tasks {
		if i >= previewLimit {
			msg += fmt.Sprintf("\n• ... and %d more", len(result.Tasks)-previewLimit)
			break
		}
		msg += fmt.Sprintf("\n• %s (%s → %s, %s)",
			t.Task, t.Start.Format(taskDateLayout), t.End.Format(taskDateLayout), t.Person)
	}
	return msg
}

// StartDigestScheduler posts a periodic board parseability summary to the
// digest channel. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 9 * * 1" for
// Mondays at 9am.
func StartDigestScheduler(cfg Config, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.DigestSchedule)
	if schedule == "" {
		log.Println("Board digest disabled (digest_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v — digest disabled", schedule, err)
		return
	}

	log.Printf("Board digest scheduled (cron: %s) to channel %s", schedule, cfg.DigestChannelID)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next board digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, digestErr := BuildDigest(cfg)
			if digestErr != nil {
				log.Printf("Board digest error: %v", digestErr)
				continue
			}
			summary := FormatDigestSummary(result)
			log.Printf("Board digest complete: notes=%d parsed=%d malformed=%d",
				result.TotalNotes, result.Parsed, result.Malformed)

			_, _, postErr := api.PostMessage(cfg.DigestChannelID, slack.MsgOptionText(summary, false))
			if postErr != nil {
				log.Printf("Board digest post error: %v", postErr)
			}
		}
	}()
}
