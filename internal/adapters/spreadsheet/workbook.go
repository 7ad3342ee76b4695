package spreadsheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tutorbook/internal/domain/export"
)

// Sheet names written by Workbook.
const (
	SheetLessons  = "Lessons"
	SheetSummary  = "Summary"
	SheetYear     = "Year"
	SheetStudents = "Students"
)

// ErrSheetExists is returned when a sheet is added twice to one workbook.
var ErrSheetExists = errors.New("sheet already exists")

// defaultSheet is the sheet excelize creates with a new file.
const defaultSheet = "Sheet1"

// Workbook builds an .xlsx export one sheet at a time.
type Workbook struct {
	f      *excelize.File
	sheets []string
	header int // style ID for header rows
}

// NewWorkbook creates an empty workbook.
// PRE: none
// POST: Caller must Close the workbook
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{f: f, header: header}, nil
}

// AddLessons writes one row per lesson.
func (w *Workbook) AddLessons(rows []export.LessonRow) error {
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, r.Values())
	}
	return w.addSheet(SheetLessons, export.LessonHeader, cells, []float64{6, 12, 14, 10, 20, 10, 12, 12, 12, 40})
}

// AddSummary writes a label/value/unit statistics report under title.
func (w *Workbook) AddSummary(title string, rows []export.StatRow) error {
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.Label, r.Value, r.Unit})
	}
	return w.addSheet(SheetSummary, []string{title, "Value", "Unit"}, cells, []float64{24, 14, 14})
}

// AddYear writes the monthly breakdown rows from export.YearlyRows.
func (w *Workbook) AddYear(rows [][]any) error {
	return w.addSheet(SheetYear, export.YearlyHeader, rows, []float64{12, 10, 10, 10, 12, 12, 12})
}

// AddStudents writes the per-student rows from export.StudentRows.
func (w *Workbook) AddStudents(rows [][]any) error {
	return w.addSheet(SheetStudents, export.StudentHeader, rows, []float64{6, 20, 10, 10, 10, 12, 12, 10})
}

func (w *Workbook) addSheet(name string, header []string, rows [][]any, widths []float64) error {
	for _, s := range w.sheets {
		if s == name {
			return fmt.Errorf("%w: %s", ErrSheetExists, name)
		}
	}

	if len(w.sheets) == 0 {
		if err := w.f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheets = append(w.sheets, name)

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &headerCells); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	if err := w.f.SetRowStyle(name, 1, 1, w.header); err != nil {
		return fmt.Errorf("style %s header: %w", name, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i+1, err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("size %s column %s: %w", name, col, err)
		}
	}
	return nil
}

// Sheets returns the sheet names added so far, in order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// WriteTo serializes the workbook as .xlsx.
// PRE: at least one sheet has been added
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	if len(w.sheets) == 0 {
		return 0, errors.New("workbook has no sheets")
	}
	w.f.SetActiveSheet(0)
	return w.f.WriteTo(out)
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// ReadSheet returns every row of sheet from an .xlsx stream.
// Used to re-read exported workbooks.
func ReadSheet(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}
