package forms

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/ports"
)

var spreadsheetIDExpr = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// CSVSource loads intake form rows from a published spreadsheet CSV export.
// When the remote fetch fails it falls back to a local CSV snapshot, so the
// packet scorer can proceed with whatever is available; the fetch error is
// reported alongside the stale rows rather than raised.
type CSVSource struct {
	forms  map[string]config.FormConfig
	cols   config.FormsConfig
	client *http.Client
}

var _ ports.FormSource = (*CSVSource)(nil)

// NewCSVSource wires an HTTP client; a nil client gets a 20s timeout default.
func NewCSVSource(cfg config.FormsConfig, client *http.Client) *CSVSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	forms := make(map[string]config.FormConfig, len(cfg.Forms))
	for _, form := range cfg.Forms {
		forms[form.Key] = form
	}
	return &CSVSource{forms: forms, cols: cfg, client: client}
}

// Load fetches all rows of one form. The returned source string names where
// the rows actually came from ("spreadsheet", "local_csv_fallback",
// "local_csv"); rows may be non-nil even when err is not.
func (s *CSVSource) Load(ctx context.Context, formKey string) ([]domain.FormSubmission, string, error) {
	form, ok := s.forms[formKey]
	if !ok {
		return nil, "", domain.Errorf(domain.ErrKindConfiguration, "form %s is not configured", formKey)
	}

	if url := csvURL(form); url != "" {
		rows, err := s.fetchRemote(ctx, url)
		if err == nil {
			return rows, "spreadsheet", nil
		}

		srcErr := domain.NewError(domain.ErrKindSourceUnavailable, fmt.Errorf("form %s: %w", formKey, err))
		if form.FallbackFile != "" {
			if fallback, fileErr := s.loadFile(form.FallbackFile); fileErr == nil {
				return fallback, "local_csv_fallback", srcErr
			}
		}
		return nil, "spreadsheet", srcErr
	}

	if form.FallbackFile == "" {
		return nil, "local_csv", nil
	}
	rows, err := s.loadFile(form.FallbackFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "local_csv", nil
		}
		return nil, "local_csv", domain.NewError(domain.ErrKindSourceUnavailable, fmt.Errorf("form %s: %w", formKey, err))
	}
	return rows, "local_csv", nil
}

func (s *CSVSource) fetchRemote(ctx context.Context, url string) ([]domain.FormSubmission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spreadsheet returned %s", resp.Status)
	}

	return s.parseCSV(resp.Body)
}

func (s *CSVSource) loadFile(path string) ([]domain.FormSubmission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.parseCSV(f)
}

func (s *CSVSource) parseCSV(r io.Reader) ([]domain.FormSubmission, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	// Spreadsheet exports may lead with a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows []domain.FormSubmission
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read csv row: %w", err)
		}

		answers := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				answers[col] = record[i]
			}
		}

		rows = append(rows, domain.FormSubmission{
			Email:     answers[s.cols.EmailColumn],
			Name:      answers[s.cols.NameColumn],
			Timestamp: answers[s.cols.TimestampColumn],
			Answers:   answers,
		})
	}

	return rows, nil
}

// csvURL resolves the configured spreadsheet value: a sharing URL yields
// the CSV export endpoint, any other URL is fetched as-is, and a bare
// value is treated as a spreadsheet id.
func csvURL(form config.FormConfig) string {
	value := strings.TrimSpace(form.SpreadsheetURL)
	if value == "" {
		return ""
	}
	if m := spreadsheetIDExpr.FindStringSubmatch(value); m != nil {
		return spreadsheetCSVURL(m[1], form.Sheet)
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return spreadsheetCSVURL(value, form.Sheet)
}

func spreadsheetCSVURL(spreadsheetID, sheet string) string {
	if sheet != "" {
		return fmt.Sprintf(
			"https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
			spreadsheetID, strings.ReplaceAll(sheet, " ", "%20"))
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", spreadsheetID)
}
