// Package report builds the admin usage export: one spreadsheet summarizing
// every student's progress on a terminal.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/codebuddy-labs/codebuddy/internal/session"
)

const sheetName = "Progress"

var headers = []string{
	"Student", "Grade", "Curriculum", "Topics Completed", "Total Topics",
	"Current Topic", "Messages",
}

// BuildWorkbook renders the per-student progress summary. Rows are sorted by
// student name so successive exports diff cleanly.
func BuildWorkbook(terminalName string, students map[string]*session.StudentProgress) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), sheetName)

	title := fmt.Sprintf("Code Buddy usage report: %s (%s)", terminalName, time.Now().Format("2006-01-02"))
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, fmt.Errorf("writing title: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("writing header %q: %w", h, err)
		}
	}
	if err := f.SetCellStyle(sheetName, "A3", "G3", bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	names := make([]string, 0, len(students))
	for name := range students {
		names = append(names, name)
	}
	sort.Strings(names)

	for row, name := range names {
		p := students[name]
		currentTopic := "finished"
		if t, ok := p.Curriculum.CurrentTopic(); ok {
			currentTopic = t.Name
		}
		values := []any{
			name,
			string(p.Grade),
			p.Curriculum.Title,
			p.Curriculum.CompletedCount(),
			len(p.Curriculum.Topics),
			currentTopic,
			len(p.History),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+4)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("writing row for %q: %w", name, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 28); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "F", "F", 32); err != nil {
		return nil, fmt.Errorf("sizing columns: %w", err)
	}
	return f, nil
}
