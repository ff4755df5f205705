package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const (
	actionSetCritical = "gantt_set_critical"
	actionSetFloating = "gantt_set_floating"
	actionToggleTask  = "gantt_toggle"
	actionTaskNoop    = "gantt_task_noop"
	actionDone        = "gantt_done"
	actionReset       = "gantt_reset"
	actionGenerate    = "gantt_generate"
	actionRenderPNG   = "gantt_render_png"
	actionRenderExcel = "gantt_render_excel"
	actionSuggest     = "gantt_suggest"

	historyPageSize = 10
)

func StartSlackBot(cfg Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)
	registry := NewSessionRegistry()

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, registry, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(api, eventsAPIEvent)
			case socketmode.EventTypeInteractive:
				client.Ack(*evt.Request)
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				go handleInteraction(api, db, cfg, registry, callback)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, registry *SessionRegistry, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/gantt":
		handleGantt(api, cfg, registry, cmd)
	case "/gantt-history":
		handleHistory(api, db, cmd)
	case "/help":
		handleHelp(api, cmd)
	}
}

func handleEventsAPI(api *slack.Client, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MemberJoinedChannelEvent:
		handleMemberJoined(api, ev)
	}
}

func handleMemberJoined(api *slack.Client, ev *slackevents.MemberJoinedChannelEvent) {
	log.Printf("member-joined user=%s channel=%s", ev.User, ev.Channel)

	intro := "Hi! I'm GanttBot — I turn Miro sticky notes into Gantt charts.\n\n" +
		"Write sticky notes as `Task | 2025-01-01 | 2025-01-05 | Person`, then:\n" +
		"• `/gantt` — Classify the board's tasks and generate a chart\n" +
		"• `/gantt-history` — See recent renders\n" +
		"• `/help` — All commands"

	_, _, err := api.PostMessage(ev.Channel,
		slack.MsgOptionText(intro, false),
		slack.MsgOptionPostEphemeral(ev.User),
	)
	if err != nil {
		log.Printf("member-joined intro error user=%s channel=%s: %v", ev.User, ev.Channel, err)
	}
}

// handleGantt starts (or resumes) a classification session for this user.
// The board is only fetched when no session exists yet; resuming keeps the
// in-progress assignment.
func handleGantt(api *slack.Client, cfg Config, registry *SessionRegistry, cmd slack.SlashCommand) {
	sess, ok := registry.Lookup(cmd.UserID)
	if !ok {
		notes, err := FetchStickyNotes(cfg)
		if err != nil {
			log.Printf("gantt fetch error user=%s: %v", cmd.UserID, err)
			postEphemeral(api, cmd, "Couldn't reach the board — no sticky notes available right now.")
			return
		}

		tasks := ParseNotes(notes)
		if len(tasks) == 0 {
			postEphemeral(api, cmd, "No parseable sticky notes on the board. Expected format: `Task | 2025-01-01 | 2025-01-05 | Person`")
			return
		}

		sess, err = NewClassificationSession(tasks)
		if err != nil {
			postEphemeral(api, cmd, fmt.Sprintf("Error starting session: %v", err))
			return
		}
		registry.Store(cmd.UserID, sess)
		log.Printf("gantt session started user=%s tasks=%d", cmd.UserID, len(tasks))
	}

	blocks := buildPickerBlocks(sess, cfg)
	_, _, err := api.PostMessage(cmd.ChannelID, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		log.Printf("gantt picker post error user=%s: %v", cmd.UserID, err)
		postEphemeral(api, cmd, "Error rendering the task picker.")
	}
}

// buildPickerBlocks is the category-level menu: choose which type to
// classify, plus generate/reset once a selection exists.
func buildPickerBlocks(sess *ClassificationSession, cfg Config) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Pick which task type to classify:", false, false),
			nil, nil,
		),
		slack.NewActionBlock("gantt_pick_critical", slack.NewButtonBlockElement(
			actionSetCritical, string(CategoryCritical),
			slack.NewTextBlockObject(slack.PlainTextType, "🔴 Select Critical Path", false, false),
		)),
		slack.NewActionBlock("gantt_pick_floating", slack.NewButtonBlockElement(
			actionSetFloating, string(CategoryFloating),
			slack.NewTextBlockObject(slack.PlainTextType, "🔵 Select Floating Task", false, false),
		)),
	}

	var extras []slack.BlockElement
	if sess.HasSelection() {
		extras = append(extras, slack.NewButtonBlockElement(
			actionGenerate, "generate",
			slack.NewTextBlockObject(slack.PlainTextType, "✅ Generate Gantt Chart", false, false),
		))
	}
	if cfg.SuggestionsEnabled() {
		extras = append(extras, slack.NewButtonBlockElement(
			actionSuggest, "suggest",
			slack.NewTextBlockObject(slack.PlainTextType, "💡 Suggest split", false, false),
		))
	}
	extras = append(extras, slack.NewButtonBlockElement(
		actionReset, "reset",
		slack.NewTextBlockObject(slack.PlainTextType, "Start over", false, false),
	))
	blocks = append(blocks, slack.NewActionBlock("gantt_pick_extras", extras...))

	return blocks
}

// buildTaskBlocks renders the options view as one toggle button per task.
// Tasks held by the other category become no-op buttons so the UI itself
// can't produce a conflicting toggle.
func buildTaskBlocks(sess *ClassificationSession) []slack.Block {
	active, hasActive := sess.ActiveCategory()
	title := "Click tasks to toggle:"
	if hasActive {
		title = fmt.Sprintf("Click tasks to toggle as *%s*:", active)
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, title, false, false),
			nil, nil,
		),
	}

	for _, opt := range sess.OptionsView() {
		label := opt.Task.Task
		actionID := actionToggleTask
		value := strconv.Itoa(opt.Index)

		switch opt.State {
		case OptionSelectedActive:
			label = "✅ " + label
		case OptionSelectedOther:
			label = fmt.Sprintf("❌ %s (already %s)", label, opt.Assigned)
			actionID = actionTaskNoop
			value = "noop"
		}

		blocks = append(blocks, slack.NewActionBlock(
			fmt.Sprintf("gantt_task_%d", opt.Index),
			slack.NewButtonBlockElement(actionID, value,
				slack.NewTextBlockObject(slack.PlainTextType, label, false, false)),
		))
	}

	blocks = append(blocks, slack.NewActionBlock("gantt_task_footer",
		slack.NewButtonBlockElement(actionDone, "done",
			slack.NewTextBlockObject(slack.PlainTextType, "✔️ Done selecting", false, false)),
		slack.NewButtonBlockElement(actionReset, "reset",
			slack.NewTextBlockObject(slack.PlainTextType, "Start over", false, false)),
	))
	return blocks
}

func handleInteraction(api *slack.Client, db *sql.DB, cfg Config, registry *SessionRegistry, cb slack.InteractionCallback) {
	if cb.Type != slack.InteractionTypeBlockActions {
		return
	}
	if len(cb.ActionCallback.BlockActions) == 0 {
		return
	}
	act := cb.ActionCallback.BlockActions[0]
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	userID := cb.User.ID

	if act.ActionID == actionTaskNoop {
		return
	}

	sess, ok := registry.Lookup(userID)
	if !ok {
		postEphemeralTo(api, channelID, userID, "No active classification session. Run `/gantt` first.")
		return
	}

	switch act.ActionID {
	case actionSetCritical:
		sess.SetActiveCategory(CategoryCritical)
		updateMessage(api, channelID, cb.Message.Timestamp, buildTaskBlocks(sess))
	case actionSetFloating:
		sess.SetActiveCategory(CategoryFloating)
		updateMessage(api, channelID, cb.Message.Timestamp, buildTaskBlocks(sess))
	case actionToggleTask:
		handleToggle(api, channelID, userID, cb.Message.Timestamp, sess, act.Value)
	case actionDone:
		updateMessage(api, channelID, cb.Message.Timestamp, buildPickerBlocks(sess, cfg))
		postEphemeralTo(api, channelID, userID, "Selection saved. Pick the other type or generate the chart.")
	case actionReset:
		sess.Reset()
		updateMessage(api, channelID, cb.Message.Timestamp, buildPickerBlocks(sess, cfg))
		postEphemeralTo(api, channelID, userID, "Selection cleared.")
	case actionGenerate:
		handleGenerate(api, channelID, userID, cb.Message.Timestamp, sess)
	case actionRenderPNG, actionRenderExcel:
		handleRender(api, db, cfg, cb, sess, act.ActionID == actionRenderExcel)
	case actionSuggest:
		handleSuggest(api, cfg, channelID, userID, cb.Message.Timestamp, sess)
	}
}

func handleToggle(api *slack.Client, channelID, userID, messageTS string, sess *ClassificationSession, value string) {
	index, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		postEphemeralTo(api, channelID, userID, "Invalid task index.")
		return
	}

	outcome, err := sess.Toggle(index)
	switch {
	case errors.Is(err, ErrNoActiveCategory):
		postEphemeralTo(api, channelID, userID, "⚠️ Pick a task type first (Critical Path or Floating Task).")
		return
	case errors.Is(err, ErrCrossCategoryConflict):
		active, _ := sess.ActiveCategory()
		postEphemeralTo(api, channelID, userID,
			fmt.Sprintf("❌ That task is already selected as %s. Toggle it off there first.", active.Other()))
		return
	case err != nil:
		postEphemeralTo(api, channelID, userID, fmt.Sprintf("Error: %v", err))
		return
	}

	log.Printf("gantt toggle user=%s index=%d outcome=%d", userID, index, outcome)
	updateMessage(api, channelID, messageTS, buildTaskBlocks(sess))
}

func handleGenerate(api *slack.Client, channelID, userID, messageTS string, sess *ClassificationSession) {
	if _, err := sess.Finalize(); err != nil {
		postEphemeralTo(api, channelID, userID, "⚠️ No tasks selected yet.")
		return
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Pick a format for the Gantt chart:", false, false),
			nil, nil,
		),
		slack.NewActionBlock("gantt_format",
			slack.NewButtonBlockElement(actionRenderPNG, "png",
				slack.NewTextBlockObject(slack.PlainTextType, "📊 PNG", false, false)),
			slack.NewButtonBlockElement(actionRenderExcel, "excel",
				slack.NewTextBlockObject(slack.PlainTextType, "📊 PNG + Excel", false, false)),
		),
	}
	updateMessage(api, channelID, messageTS, blocks)
}

func handleRender(api *slack.Client, db *sql.DB, cfg Config, cb slack.InteractionCallback, sess *ClassificationSession, withExcel bool) {
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	userID := cb.User.ID

	// Re-finalize from the current assignment: the session may have been
	// edited since the format chooser was posted.
	req, err := sess.Finalize()
	if err != nil {
		postEphemeralTo(api, channelID, userID, "⚠️ No tasks selected yet.")
		return
	}

	chartPath, exportPath, err := GenerateArtifacts(req, cfg.ChartOutputDir, time.Now())
	if err != nil {
		log.Printf("gantt render error user=%s: %v", userID, err)
		postEphemeralTo(api, channelID, userID, fmt.Sprintf("Error generating chart: %v", err))
		return
	}

	if err := uploadArtifact(api, channelID, chartPath, "📊 Gantt Chart (PNG)"); err != nil {
		log.Printf("gantt chart upload error user=%s: %v", userID, err)
		postEphemeralTo(api, channelID, userID, "Error uploading chart. Check bot permissions.")
		return
	}
	if withExcel {
		if err := uploadArtifact(api, channelID, exportPath, "📊 Gantt Data (Excel)"); err != nil {
			log.Printf("gantt export upload error user=%s: %v", userID, err)
			postEphemeralTo(api, channelID, userID, "Error uploading Excel export. Check bot permissions.")
			return
		}
	}

	critical, floating := 0, 0
	for _, row := range req.Rows {
		if row.Category == CategoryCritical {
			critical++
		} else {
			floating++
		}
	}
	rec := RenderRecord{
		ChannelID:     channelID,
		UserID:        userID,
		UserName:      cb.User.Name,
		TaskCount:     len(req.Rows),
		CriticalCount: critical,
		FloatingCount: floating,
		ChartPath:     chartPath,
		ExportPath:    exportPath,
	}
	if err := InsertRenderRecord(db, rec); err != nil {
		log.Printf("gantt history persist error (non-fatal): %v", err)
	}

	updateMessage(api, channelID, cb.Message.Timestamp, []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Gantt chart generated: %d tasks (%d critical, %d floating).", len(req.Rows), critical, floating),
				false, false),
			nil, nil,
		),
	})
	log.Printf("gantt render done user=%s rows=%d critical=%d floating=%d", userID, len(req.Rows), critical, floating)
}

func handleSuggest(api *slack.Client, cfg Config, channelID, userID, messageTS string, sess *ClassificationSession) {
	if !cfg.SuggestionsEnabled() {
		postEphemeralTo(api, channelID, userID, "Suggestions are not configured.")
		return
	}

	postEphemeralTo(api, channelID, userID, "Asking the model for a suggested split...")

	proposed, err := SuggestAssignments(cfg, sess.Tasks())
	if err != nil {
		log.Printf("gantt suggest error user=%s: %v", userID, err)
		postEphemeralTo(api, channelID, userID, "Couldn't get a suggestion. You can keep classifying manually.")
		return
	}

	applied := sess.ApplySuggestion(proposed)
	postEphemeralTo(api, channelID, userID,
		fmt.Sprintf("Applied %d suggested assignment(s). Your own selections were kept.", applied))
	updateMessage(api, channelID, messageTS, buildPickerBlocks(sess, cfg))
	log.Printf("gantt suggest applied user=%s proposed=%d applied=%d", userID, len(proposed), applied)
}

func handleHistory(api *slack.Client, db *sql.DB, cmd slack.SlashCommand) {
	records, err := GetRecentRenders(db, historyPageSize)
	if err != nil {
		log.Printf("gantt-history load error user=%s: %v", cmd.UserID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading render history: %v", err))
		return
	}
	if len(records) == 0 {
		postEphemeral(api, cmd, "No charts rendered yet. Run `/gantt` to make one.")
		return
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last %d render(s):\n", len(records)))
	for _, rec := range records {
		who := rec.UserName
		if who == "" {
			who = rec.UserID
		}
		b.WriteString(fmt.Sprintf("• %s — %d tasks (%d critical, %d floating) by %s\n",
			rec.RenderedAt.Format("2006-01-02 15:04"), rec.TaskCount, rec.CriticalCount, rec.FloatingCount, who))
	}
	postEphemeral(api, cmd, b.String())
}

func handleHelp(api *slack.Client, cmd slack.SlashCommand) {
	help := "GanttBot commands:\n" +
		"• `/gantt` — Fetch sticky notes from the board and classify them into Critical Path / Floating Task, then render a Gantt chart\n" +
		"• `/gantt-history` — Show recent chart renders\n" +
		"• `/help` — This message\n\n" +
		"Sticky note format: `Task | 2025-01-01 | 2025-01-05 | Person`"
	postEphemeral(api, cmd, help)
}

func uploadArtifact(api *slack.Client, channelID, path, title string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating artifact: %w", err)
	}
	if fi.Size() <= 0 {
		return fmt.Errorf("artifact %s is empty", path)
	}

	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		File:     path,
		FileSize: int(fi.Size()),
		Filename: filepath.Base(path),
		Channel:  channelID,
		Title:    title,
	})
	return err
}

func updateMessage(api *slack.Client, channelID, ts string, blocks []slack.Block) {
	_, _, _, err := api.UpdateMessage(channelID, ts, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		log.Printf("Error updating message channel=%s ts=%s: %v", channelID, ts, err)
	}
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	postEphemeralTo(api, cmd.ChannelID, cmd.UserID, text)
}

func postEphemeralTo(api *slack.Client, channelID, userID, text string) {
	_, err := api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral message to user=%s channel=%s: %v", userID, channelID, err)
	}
}
