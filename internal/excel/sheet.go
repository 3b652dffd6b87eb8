package excel

import (
	"fmt"

	"resaleback/internal/ingest"

	"github.com/xuri/excelize/v2"
)

// Sheet streams the first worksheet of an .xlsx file row by row, implementing
// ingest.RowSource. Close releases the underlying file.
type Sheet struct {
	file  *excelize.File
	rows  *excelize.Rows
	index int
	cells []string
	err   error
}

func OpenSheet(path string) (*Sheet, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}

	return &Sheet{file: file, rows: rows}, nil
}

func (s *Sheet) Next() bool {
	if s.err != nil || !s.rows.Next() {
		return false
	}
	cells, err := s.rows.Columns()
	if err != nil {
		s.err = err
		return false
	}
	s.index++
	s.cells = cells
	return true
}

func (s *Sheet) Row() ingest.Row {
	return ingest.Row{Index: s.index, Cells: s.cells}
}

func (s *Sheet) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.rows.Error()
}

func (s *Sheet) Close() error {
	if err := s.rows.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
