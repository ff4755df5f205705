package main

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Gantt Data"

var exportHeader = []interface{}{"Task", "Start", "End", "Person", "Category"}

// writeExportXLSX writes the tabular export: a header row followed by one
// row per task, in the same order the chart draws them.
func writeExportXLSX(layout chartLayout, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range layout.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Task,
			row.Start.Format(taskDateLayout),
			row.End.Format(taskDateLayout),
			row.Person,
			string(row.Category),
		}
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	return f.SaveAs(path)
}
