package main

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func testRenderRequest() RenderRequest {
	return RenderRequest{Rows: []RenderRow{
		{ParsedTask: ParsedTask{Task: "A", Start: day("2025-01-01"), End: day("2025-01-03"), Person: "Alice"}, Category: CategoryCritical},
		{ParsedTask: ParsedTask{Task: "B", Start: day("2025-01-02"), End: day("2025-01-05"), Person: "Bob"}, Category: CategoryFloating},
		{ParsedTask: ParsedTask{Task: "C", Start: day("2025-01-04"), End: day("2025-01-04"), Person: "Carol"}, Category: CategoryCritical},
	}}
}

func TestBuildChartLayoutBounds(t *testing.T) {
	layout, err := buildChartLayout(testRenderRequest())
	if err != nil {
		t.Fatalf("buildChartLayout failed: %v", err)
	}

	// Axis spans earliest start minus one day to latest end plus two days.
	if !layout.AxisStart.Equal(day("2024-12-31")) {
		t.Fatalf("unexpected axis start: %v", layout.AxisStart)
	}
	if !layout.AxisEnd.Equal(day("2025-01-07")) {
		t.Fatalf("unexpected axis end: %v", layout.AxisEnd)
	}
	if layout.totalDays() != 7 {
		t.Fatalf("unexpected total days: %d", layout.totalDays())
	}
	if len(layout.Rows) != 3 {
		t.Fatalf("layout must keep request row order and count, got %d", len(layout.Rows))
	}
}

func TestBuildChartLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		req  RenderRequest
	}{
		{"empty request", RenderRequest{}},
		{
			"unset date",
			RenderRequest{Rows: []RenderRow{
				{ParsedTask: ParsedTask{Task: "A", End: day("2025-01-03")}, Category: CategoryCritical},
			}},
		},
		{
			"unknown category",
			RenderRequest{Rows: []RenderRow{
				{ParsedTask: ParsedTask{Task: "A", Start: day("2025-01-01"), End: day("2025-01-03")}, Category: Category("Pending")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildChartLayout(tt.req)
			var renderErr RenderError
			if !errors.As(err, &renderErr) {
				t.Fatalf("expected RenderError, got %T: %v", err, err)
			}
		})
	}
}

func TestGenerateArtifactsCrossConsistency(t *testing.T) {
	outDir := t.TempDir()
	req := testRenderRequest()
	now := time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)

	chartPath, exportPath, err := GenerateArtifacts(req, outDir, now)
	if err != nil {
		t.Fatalf("GenerateArtifacts failed: %v", err)
	}
	if filepath.Base(chartPath) != "gantt_20250201_103000.png" {
		t.Fatalf("unexpected chart path: %s", chartPath)
	}
	if filepath.Base(exportPath) != "gantt_20250201_103000.xlsx" {
		t.Fatalf("unexpected export path: %s", exportPath)
	}

	// The chart must be a decodable, non-trivial raster.
	chartFile, err := os.Open(chartPath)
	if err != nil {
		t.Fatalf("opening chart: %v", err)
	}
	defer chartFile.Close()
	img, err := png.Decode(chartFile)
	if err != nil {
		t.Fatalf("chart is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() < 100 || img.Bounds().Dy() < 100 {
		t.Fatalf("chart implausibly small: %v", img.Bounds())
	}

	// The export must agree row-for-row with the request.
	f, err := excelize.OpenFile(exportPath)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheetName)
	if err != nil {
		t.Fatalf("reading export rows: %v", err)
	}
	if len(rows) != len(req.Rows)+1 {
		t.Fatalf("expected header plus %d rows, got %d", len(req.Rows), len(rows))
	}

	wantHeader := []string{"Task", "Start", "End", "Person", "Category"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header column %d: expected %q, got %q", i, col, rows[0][i])
		}
	}

	for i, reqRow := range req.Rows {
		got := rows[i+1]
		want := []string{
			reqRow.Task,
			reqRow.Start.Format(taskDateLayout),
			reqRow.End.Format(taskDateLayout),
			reqRow.Person,
			string(reqRow.Category),
		}
		for col := range want {
			if got[col] != want[col] {
				t.Fatalf("row %d column %d: expected %q, got %q", i, col, want[col], got[col])
			}
		}
	}
}

func TestGenerateArtifactsAcceptsReversedDates(t *testing.T) {
	outDir := t.TempDir()
	req := RenderRequest{Rows: []RenderRow{
		{ParsedTask: ParsedTask{Task: "Reversed", Start: day("2025-01-10"), End: day("2025-01-07"), Person: "Bob"}, Category: CategoryFloating},
	}}

	chartPath, exportPath, err := GenerateArtifacts(req, outDir, time.Now())
	if err != nil {
		t.Fatalf("reversed dates should still render, got %v", err)
	}
	for _, path := range []string{chartPath, exportPath} {
		fi, err := os.Stat(path)
		if err != nil || fi.Size() == 0 {
			t.Fatalf("expected non-empty artifact at %s, err=%v", path, err)
		}
	}
}
