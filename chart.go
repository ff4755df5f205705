package main

import (
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	chartPxPerDay   = 28
	chartRowHeight  = 36
	chartBarHeight  = 20
	chartMarginTop  = 48
	chartMarginBot  = 90
	chartAnnotation = 140 // room to the right for person annotations
	chartMinWidth   = 720
)

// writeChartPNG rasterizes the timeline. Row 0 is drawn at the top, one row
// per task in request order, bars positioned on a day-granular axis.
func writeChartPNG(layout chartLayout, path string) error {
	labelWidth := 0
	for _, row := range layout.Rows {
		if w := len(row.Task) * 7; w > labelWidth {
			labelWidth = w
		}
	}
	marginLeft := labelWidth + 24

	width := marginLeft + layout.totalDays()*chartPxPerDay + chartAnnotation
	if width < chartMinWidth {
		width = chartMinWidth
	}
	height := chartMarginTop + len(layout.Rows)*chartRowHeight + chartMarginBot

	dc := gg.NewContext(width, height)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("GANTT CHART", float64(width)/2, float64(chartMarginTop)/2, 0.5, 0.5)

	axisBottom := float64(chartMarginTop + len(layout.Rows)*chartRowHeight)
	drawDayGrid(dc, layout, marginLeft, axisBottom)

	xForDate := func(t time.Time) float64 {
		days := t.Sub(layout.AxisStart).Hours() / 24
		return float64(marginLeft) + days*chartPxPerDay
	}

	for i, row := range layout.Rows {
		rowTop := float64(chartMarginTop + i*chartRowHeight)
		barY := rowTop + float64(chartRowHeight-chartBarHeight)/2
		barX := xForDate(row.Start)
		barW := float64(row.DurationDays()) * chartPxPerDay

		// Reversed or zero-length tasks still get a visible marker.
		if barW <= 0 {
			barW = 3
		}

		dc.SetHexColor(categoryColors[row.Category])
		dc.DrawRectangle(barX, barY, barW, chartBarHeight)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.DrawStringAnchored(row.Task, float64(marginLeft)-8, rowTop+float64(chartRowHeight)/2, 1, 0.5)

		// Person annotation just past the bar's end, one day out.
		annX := xForDate(row.End) + chartPxPerDay
		dc.DrawStringAnchored(row.Person, annX, rowTop+float64(chartRowHeight)/2, 0, 0.5)
	}

	drawLegend(dc, width, height)
	return dc.SavePNG(path)
}

func drawDayGrid(dc *gg.Context, layout chartLayout, marginLeft int, axisBottom float64) {
	totalDays := layout.totalDays()

	// Thin out tick labels when the span is wide.
	labelEvery := 1
	for totalDays/labelEvery > 20 {
		labelEvery++
	}

	for d := 0; d <= totalDays; d++ {
		x := float64(marginLeft + d*chartPxPerDay)

		dc.SetRGBA(0, 0, 0, 0.25)
		dc.SetLineWidth(0.5)
		dc.SetDash(4, 4)
		dc.DrawLine(x, float64(chartMarginTop), x, axisBottom)
		dc.Stroke()
		dc.SetDash()

		if d%labelEvery == 0 {
			day := layout.AxisStart.AddDate(0, 0, d)
			dc.SetRGB(0, 0, 0)
			dc.Push()
			dc.RotateAbout(gg.Radians(-45), x, axisBottom+10)
			dc.DrawStringAnchored(day.Format(taskDateLayout), x, axisBottom+10, 1, 0.5)
			dc.Pop()
		}
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(float64(marginLeft), axisBottom, float64(marginLeft+totalDays*chartPxPerDay), axisBottom)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, width, height int) {
	const swatch = 12.0
	entries := []Category{CategoryCritical, CategoryFloating}

	entryWidth := 0.0
	for _, c := range entries {
		w, _ := dc.MeasureString(string(c))
		entryWidth += swatch + 6 + w + 24
	}

	x := (float64(width) - entryWidth) / 2
	y := float64(height) - 18

	for _, c := range entries {
		dc.SetHexColor(categoryColors[c])
		dc.DrawRectangle(x, y-swatch, swatch, swatch)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.DrawStringAnchored(string(c), x+swatch+6, y-swatch/2, 0, 0.5)
		w, _ := dc.MeasureString(string(c))
		x += swatch + 6 + w + 24
	}
}
