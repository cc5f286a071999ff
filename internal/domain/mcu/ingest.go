package mcu

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrParse indicates the uploaded file is not a readable workbook.
var ErrParse = errors.New("workbook cannot be parsed")

// ParseResult is the outcome of one workbook ingest.
type ParseResult struct {
	Records []Record
	// TotalRows counts data rows in the sheet, including skipped ones.
	TotalRows int
	// SkippedRows counts rows dropped for having no employee name.
	SkippedRows int
}

// ParseWorkbook reads the first sheet of an xlsx workbook. The first row is
// the header row; every following row becomes a Record. Rows without an
// employee name are dropped, not failed: intake sheets routinely carry
// trailing blank rows and subtotal lines.
func ParseWorkbook(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrParse, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrParse, sheets[0])
	}

	idx := headerIndex(rows[0])
	res := &ParseResult{TotalRows: len(rows) - 1}
	for _, row := range rows[1:] {
		rec := mapRow(idx, row)
		if rec.NamaKaryawan == "" {
			res.SkippedRows++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}
