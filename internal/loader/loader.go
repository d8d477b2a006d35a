// Package loader turns uploaded or on-disk donor files into core tables.
//
// Dispatch is by filename extension: workbooks go through excelize, delimited
// text through encoding/csv. Every failure is returned as a classified
// *core.Error and no partial table is ever returned alongside an error.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"donorboard/internal/core"
	"donorboard/internal/log"

	"github.com/google/uuid"
)

const (
	MsgUnsupported = "Unsupported file type. Please upload an Excel (.xlsx/.xls) or CSV (.csv) file."
	MsgReadUpload  = "Failed to read the uploaded file"
)

// FormatFor maps a filename to the decoder used for it.
func FormatFor(name string) (core.Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return core.FormatSpreadsheet, true
	case ".csv":
		return core.FormatCSV, true
	default:
		return "", false
	}
}

// Load decodes r according to the extension of name.
func Load(ctx context.Context, name string, r io.Reader) (*core.Table, error) {
	return load(ctx, name, r, MsgReadUpload)
}

func load(ctx context.Context, name string, r io.Reader, readMsg string) (*core.Table, error) {
	format, ok := FormatFor(name)
	if !ok {
		slog.WarnContext(ctx, "Unsupported donor file type",
			log.FieldComponent, log.ComponentLoader,
			log.FieldFileName, name)
		return nil, core.NewError(core.KindUnsupportedFormat, MsgUnsupported, nil)
	}

	start := time.Now()
	var (
		header []string
		rows   [][]string
		cell   dateParser
		err    error
	)
	switch format {
	case core.FormatSpreadsheet:
		header, rows, err = readWorkbook(r)
		cell = workbookDate
	default:
		header, rows, err = readCSV(r)
		cell = core.ParseDate
	}
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, readMsg, err)
	}

	records, err := decodeRecords(header, rows, cell)
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, readMsg, err)
	}

	tbl := NewTable(name, format, header, records)
	slog.InfoContext(ctx, "Donor table loaded",
		log.FieldComponent, log.ComponentLoader,
		log.FieldFileName, name,
		log.FieldFormat, string(format),
		log.FieldRows, tbl.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return tbl, nil
}

// NewTable stamps a freshly decoded table with an identity and load time.
func NewTable(source string, format core.Format, header []string, records []core.DonorRecord) *core.Table {
	return &core.Table{
		ID:       uuid.NewString(),
		Source:   source,
		Format:   format,
		Header:   append([]string(nil), header...),
		Records:  records,
		LoadedAt: time.Now(),
	}
}

type dateParser func(string) (core.Date, error)

// DecodeRecords maps raw string rows onto donor records using header names.
// Sources that are not files (Google Sheets) reuse it directly.
func DecodeRecords(header []string, rows [][]string) ([]core.DonorRecord, error) {
	return decodeRecords(header, rows, core.ParseDate)
}

func decodeRecords(header []string, rows [][]string, parseDate dateParser) ([]core.DonorRecord, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	if err := core.ValidateHeader(header); err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	records := make([]core.DonorRecord, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		// Row numbers are 1-based and count the header line.
		rowNum := i + 2
		get := func(col string) string {
			j := idx[col]
			if j < len(row) {
				return strings.TrimSpace(row[j])
			}
			return ""
		}

		rec := core.DonorRecord{
			DonorName:         get(core.ColDonorName),
			GiftFrequency:     get(core.ColGiftFrequency),
			EventAttendance:   get(core.ColEventAttendance),
			RelationshipNotes: get(core.ColRelationshipNotes),
		}

		date, err := parseDate(get(core.ColLastGiftDate))
		if err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", rowNum, core.ColLastGiftDate, err)
		}
		rec.LastGiftDate = date

		for _, col := range core.AmountColumns {
			v, err := core.ParseAmount(get(col))
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", rowNum, col, err)
			}
			switch col {
			case core.ColDonations2022:
				rec.Donations2022 = v
			case core.ColDonations2023:
				rec.Donations2023 = v
			case core.ColDonations2024:
				rec.Donations2024 = v
			case core.ColTotalDonations:
				rec.TotalDonations = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
