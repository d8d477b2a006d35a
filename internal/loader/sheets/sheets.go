// Package sheets reads a donor table from a Google Sheets range.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"donorboard/internal/core"
	"donorboard/internal/loader"
	"donorboard/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// MsgReadSheet is shown when the range cannot be fetched or decoded.
const MsgReadSheet = "Failed to read Google Sheet"

// Config identifies the range and the service account used to read it.
type Config struct {
	SpreadsheetID      string
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// fetchFunc returns the raw cell grid of the configured range.
type fetchFunc func(ctx context.Context) ([][]interface{}, error)

// Source reads the configured range. The first row is the header.
type Source struct {
	spreadsheetID string
	readRange     string
	fetch         fetchFunc
}

var _ loader.Source = (*Source)(nil)

// New creates a Sheets-backed source using service account credentials.
func New(ctx context.Context, cfg Config) (*Source, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		return nil, errors.New("missing sheet range")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Source{
		spreadsheetID: id,
		readRange:     rng,
		fetch: func(ctx context.Context) ([][]interface{}, error) {
			resp, err := svc.Spreadsheets.Values.Get(id, rng).
				ValueRenderOption("FORMATTED_VALUE").
				Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", rng, err)
			}
			return resp.Values, nil
		},
	}, nil
}

// newSheetsService initializes a read-only Sheets service from inline JSON or
// a key file, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		log.FieldComponent, log.ComponentSheets,
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Name identifies the spreadsheet range.
func (s *Source) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.spreadsheetID, s.readRange)
}

// Load fetches the range and decodes it as a donor table.
func (s *Source) Load(ctx context.Context) (*core.Table, error) {
	start := time.Now()
	values, err := s.fetch(ctx)
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, MsgReadSheet, err)
	}

	header, rows, err := splitValues(values)
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, MsgReadSheet, err)
	}
	records, err := loader.DecodeRecords(header, rows)
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, MsgReadSheet, err)
	}

	tbl := loader.NewTable(s.Name(), core.FormatSheets, header, records)
	slog.InfoContext(ctx, "Donor table loaded",
		log.FieldComponent, log.ComponentSheets,
		log.FieldSource, s.Name(),
		log.FieldRows, tbl.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return tbl, nil
}

// splitValues converts the API cell grid into a header and string rows.
// Trailing empty cells are omitted by the API, so rows may be short.
func splitValues(values [][]interface{}) ([]string, [][]string, error) {
	if len(values) == 0 {
		return nil, nil, errors.New("range is empty")
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return header, rows, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
