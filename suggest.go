package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

const suggestionSystemPrompt = `You are a project planning assistant. Given a list of tasks with start and end dates, propose which tasks form the critical path (tasks whose dates chain together and whose delay would delay the project) and which are floating tasks (slack in their scheduling).

Respond with ONLY a JSON object of this exact shape, no prose:
{"critical_path": [<task indices>], "floating_task": [<task indices>]}

Every index must come from the provided list. A task index must not appear in both arrays. It is fine to leave tasks out of both arrays if you are unsure.`

type suggestionResponse struct {
	CriticalPath []int `json:"critical_path"`
	FloatingTask []int `json:"floating_task"`
}

// SuggestAssignments asks the configured model to propose a critical/floating
// split for the task list. The result only covers indices the model chose;
// the caller applies it without overriding operator selections.
func SuggestAssignments(cfg Config, tasks []ParsedTask) (map[int]Category, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to suggest for")
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.LLMModel),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: suggestionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildSuggestionPrompt(tasks))),
		},
	})
	if err != nil {
		log.Printf("suggest anthropic error: %v", err)
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("suggest response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return parseSuggestionResponse(block.Text, len(tasks))
		}
	}
	return nil, fmt.Errorf("no text content in Anthropic response")
}

func buildSuggestionPrompt(tasks []ParsedTask) string {
	var b strings.Builder
	b.WriteString("Tasks:\n")
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d: %s | %s | %s | %s\n",
			i, t.Task, t.Start.Format(taskDateLayout), t.End.Format(taskDateLayout), t.Person)
	}
	return b.String()
}

// parseSuggestionResponse extracts the proposed split. Out-of-range indices
// are dropped; an index claimed by both arrays keeps its first (critical)
// assignment so the mutual-exclusion invariant is preserved downstream.
func parseSuggestionResponse(text string, taskCount int) (map[int]Category, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed suggestionResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parsing suggestion response: %w", err)
	}

	result := make(map[int]Category)
	for _, i := range parsed.CriticalPath {
		if i < 0 || i >= taskCount {
			log.Printf("suggest dropped out-of-range index=%d", i)
			continue
		}
		result[i] = CategoryCritical
	}
	for _, i := range parsed.FloatingTask {
		if i < 0 || i >= taskCount {
			log.Printf("suggest dropped out-of-range index=%d", i)
			continue
		}
		if _, taken := result[i]; taken {
			log.Printf("suggest dropped conflicting index=%d", i)
			continue
		}
		result[i] = CategoryFloating
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("suggestion contained no usable indices")
	}
	return result, nil
}
