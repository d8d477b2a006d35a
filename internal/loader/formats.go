package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"donorboard/internal/core"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readCSV returns the header and data rows of a delimited text file.
func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv rows: %w", err)
	}
	return header, rows, nil
}

// oleMagic opens every legacy BIFF (.xls) workbook.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// readWorkbook returns the header and rows of the first sheet. The container
// is sniffed rather than trusted from the extension, so a renamed .xlsx still
// opens.
func readWorkbook(r io.Reader) ([]string, [][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	if bytes.HasPrefix(b, oleMagic) {
		return readXLS(bytes.NewReader(b))
	}
	return readXLSX(bytes.NewReader(b))
}

// readXLSX reads cells raw so dates arrive as serial numbers independent of
// display format.
func readXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return all[0], all[1:], nil
}

// readXLS reads a BIFF workbook. Cells come back formatted, so dates are text.
func readXLS(r io.ReadSeeker) (header []string, rows [][]string, err error) {
	// The BIFF parser panics on some truncated records.
	defer func() {
		if p := recover(); p != nil {
			header, rows, err = nil, nil, fmt.Errorf("open legacy workbook: %v", p)
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, errors.New("workbook has no sheets")
	}

	var all [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			all = append(all, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		all = append(all, cells)
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}
	return all[0], all[1:], nil
}

// workbookDate accepts Excel serial dates as well as text dates.
func workbookDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return core.Date{}, fmt.Errorf("%w: serial %v", core.ErrInvalidDate, serial)
		}
		y, m, d := t.Date()
		return core.NewDate(y, int(m), d), nil
	}
	return core.ParseDate(s)
}
