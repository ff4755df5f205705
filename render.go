package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Fixed display colors, one per category. A finalized request never
// contains an unclassified task, so no third color is needed.
var categoryColors = map[Category]string{
	CategoryCritical: "#FF0000",
	CategoryFloating: "#1E90FF",
}

// RenderError means the renderer received data it cannot lay out. It is
// fatal to that render attempt only; the session survives and can retry.
type RenderError struct {
	Reason string
}

func (e RenderError) Error() string {
	return "render error: " + e.Reason
}

// chartLayout is the shared per-task layout computation behind both
// artifacts: row order, durations, and the horizontal axis bounds.
type chartLayout struct {
	Rows      []RenderRow
	AxisStart time.Time // earliest Start minus one day
	AxisEnd   time.Time // latest End plus two days
}

func (l chartLayout) totalDays() int {
	return int(l.AxisEnd.Sub(l.AxisStart).Hours() / 24)
}

// buildChartLayout validates the request and computes the axis bounds.
// Row i of the layout is row i of both the chart and the export.
func buildChartLayout(req RenderRequest) (chartLayout, error) {
	if len(req.Rows) == 0 {
		return chartLayout{}, RenderError{Reason: "empty render request"}
	}

	minStart := req.Rows[0].Start
	maxEnd := req.Rows[0].End
	for _, row := range req.Rows {
		if row.Start.IsZero() || row.End.IsZero() {
			return chartLayout{}, RenderError{Reason: fmt.Sprintf("task %q has an unset date", row.Task)}
		}
		if _, ok := categoryColors[row.Category]; !ok {
			return chartLayout{}, RenderError{Reason: fmt.Sprintf("task %q has unknown category %q", row.Task, row.Category)}
		}
		if row.Start.Before(minStart) {
			minStart = row.Start
		}
		if row.End.After(maxEnd) {
			maxEnd = row.End
		}
	}

	return chartLayout{
		Rows:      req.Rows,
		AxisStart: minStart.AddDate(0, 0, -1),
		AxisEnd:   maxEnd.AddDate(0, 0, 2),
	}, nil
}

// GenerateArtifacts renders the chart PNG and the XLSX export from one
// shared layout and returns both paths. Row order is identical across the
// two artifacts.
func GenerateArtifacts(req RenderRequest, outputDir string, now time.Time) (string, string, error) {
	layout, err := buildChartLayout(req)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", err
	}

	stamp := now.Format("20060102_150405")
	chartPath := filepath.Join(outputDir, fmt.Sprintf("gantt_%s.png", stamp))
	exportPath := filepath.Join(outputDir, fmt.Sprintf("gantt_%s.xlsx", stamp))

	if err := writeChartPNG(layout, chartPath); err != nil {
		return "", "", fmt.Errorf("writing chart: %w", err)
	}
	if err := writeExportXLSX(layout, exportPath); err != nil {
		return "", "", fmt.Errorf("writing export: %w", err)
	}

	log.Printf("render done rows=%d chart=%s export=%s", len(layout.Rows), chartPath, exportPath)
	return chartPath, exportPath, nil
}
