// Package intake parses code-enforcement snapshot extracts and watches
// a drop directory for newly delivered ones.
package intake

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aqueducts-ai/corona-case-upsert/internal/core/domain"
	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// dateLayouts are the renderings seen in real extracts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006-01-02 15:04:05",
}

// column names are matched case-insensitively after trimming; extracts
// are inconsistent about capitalisation between deliveries.
var columnAliases = map[string][]string{
	"case_id":     {"case number", "case_number", "case id", "case_id", "casenumber"},
	"opened":      {"date opened", "date_opened", "opened", "open date", "open_date"},
	"closed":      {"date closed", "date_closed", "closed", "close date", "close_date"},
	"category":    {"category", "case category"},
	"subcategory": {"sub category", "sub_category", "subcategory"},
	"address":     {"address", "site address", "site_address", "location"},
}

// ParseReport describes what a snapshot parse kept and dropped.
type ParseReport struct {
	// Rows is the number of data rows in the extract.
	Rows int

	// Skipped counts structurally broken rows (wrong field count,
	// unparseable dates, empty case number).
	Skipped int
}

// ParseSnapshot reads a snapshot extract and returns its case records.
// Column positions are taken from the header row, so extracts may add,
// drop or reorder columns between deliveries. Broken rows are skipped
// and counted, not fatal: one bad row must not block a batch. Case ID
// validation is left to the sync engine.
func ParseSnapshot(r io.Reader) ([]domain.CaseRecord, *ParseReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("snapshot is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	report := &ParseReport{}
	var records []domain.CaseRecord

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Rows++
			report.Skipped++
			logger.Debug("intake: skipping unreadable row: %v", err)
			continue
		}

		report.Rows++
		rec, ok := parseRow(header, cols, row)
		if !ok {
			report.Skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, report, nil
}

// ParseSnapshotFile opens and parses a snapshot extract on disk.
func ParseSnapshotFile(path string) ([]domain.CaseRecord, *ParseReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	return ParseSnapshot(f)
}

// mapColumns resolves header names to field indices. Only the case
// number column is mandatory; everything else degrades to empty values.
func mapColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := make(map[string]int)
	for field, aliases := range columnAliases {
		cols[field] = -1
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				cols[field] = i
				break
			}
		}
	}

	if cols["case_id"] < 0 {
		return nil, fmt.Errorf("snapshot header has no case number column (got: %s)",
			strings.Join(header, ", "))
	}
	return cols, nil
}

func parseRow(header []string, cols map[string]int, row []string) (domain.CaseRecord, bool) {
	caseID := strings.TrimSpace(cell(row, cols["case_id"]))
	if caseID == "" {
		logger.Debug("intake: skipping row with empty case number")
		return domain.CaseRecord{}, false
	}

	opened, ok := parseExtractDate(cell(row, cols["opened"]))
	if !ok {
		logger.Debug("intake: skipping %s: unparseable open date %q", caseID, cell(row, cols["opened"]))
		return domain.CaseRecord{}, false
	}
	closed, ok := parseExtractDate(cell(row, cols["closed"]))
	if !ok {
		logger.Debug("intake: skipping %s: unparseable close date %q", caseID, cell(row, cols["closed"]))
		return domain.CaseRecord{}, false
	}

	raw := make(map[string]string, len(header))
	for i, name := range header {
		raw[strings.TrimSpace(name)] = cell(row, i)
	}

	return domain.CaseRecord{
		CaseID:      caseID,
		OpenedDate:  opened,
		ClosedDate:  closed,
		Category:    strings.TrimSpace(cell(row, cols["category"])),
		SubCategory: strings.TrimSpace(cell(row, cols["subcategory"])),
		Address:     strings.TrimSpace(cell(row, cols["address"])),
		RawFields:   raw,
	}, true
}

// cell returns row[i] or "" when the column is absent or the row is
// short. Extracts occasionally truncate trailing empty columns.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseExtractDate parses a date cell. Empty and "null"-like cells are
// a valid nil date; an unparseable non-empty cell is a broken row.
func parseExtractDate(s string) (*time.Time, bool) {
	s = domain.NormalizeFieldValue(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t, true
		}
	}
	return nil, false
}
