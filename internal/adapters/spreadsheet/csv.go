package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"

	"tutorbook/internal/domain/export"
)

// WriteLessonsCSV writes lesson rows with a header line.
// PRE: out is writable
// POST: One record per row plus the header; output is flushed
func WriteLessonsCSV(out io.Writer, rows []export.LessonRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(export.LessonHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.Strings()); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Seq, err)
		}
	}
	w.Flush()
	return w.Error()
}
