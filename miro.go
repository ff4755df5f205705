package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

const defaultMiroBaseURL = "https://api.miro.com"

type miroItemsResponse struct {
	Data   []miroItem `json:"data"`
	Cursor string     `json:"cursor"`
}

type miroItem struct {
	ID    string        `json:"id"`
	Data  miroItemData  `json:"data"`
	Style miroItemStyle `json:"style"`
}

type miroItemData struct {
	Content string `json:"content"`
}

type miroItemStyle struct {
	FillColor string `json:"fillColor"`
}

// FetchStickyNotes pulls every sticky note from the configured board,
// following cursor pagination. A transport or API failure comes back as an
// error; callers treat it as "no tasks available", not a crash.
func FetchStickyNotes(cfg Config) ([]StickyNote, error) {
	baseURL := cfg.MiroBaseURL
	if baseURL == "" {
		baseURL = defaultMiroBaseURL
	}

	var notes []StickyNote
	cursor := ""
	pages := 0

	for {
		apiURL := fmt.Sprintf("%s/v2/boards/%s/items?type=sticky_note&limit=50",
			baseURL, url.PathEscape(cfg.MiroBoardID))
		if cursor != "" {
			apiURL += "&cursor=" + url.QueryEscape(cursor)
		}

		req, err := http.NewRequest("GET", apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cfg.MiroToken)
		req.Header.Set("Accept", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("Miro API returned %d: %s", resp.StatusCode, string(body))
		}

		var result miroItemsResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}

		for _, item := range result.Data {
			notes = append(notes, StickyNote{
				Content:   item.Data.Content,
				FillColor: item.Style.FillColor,
			})
		}
		pages++

		if result.Cursor == "" {
			break
		}
		cursor = result.Cursor
	}

	log.Printf("miro fetch done board=%s notes=%d pages=%d", cfg.MiroBoardID, len(notes), pages)
	return notes, nil
}
