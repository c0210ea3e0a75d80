package forms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnrollmentHealth/internal/config"
)

func formsConfig(forms ...config.FormConfig) config.FormsConfig {
	return config.FormsConfig{
		TimestampColumn: "Timestamp",
		EmailColumn:     "Email Address",
		NameColumn:      "Student Name",
		Forms:           forms,
	}
}

func TestLoadRemoteCSV(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\uFEFFTimestamp,Email Address,Student Name,Comments\n" +
			"2026-01-05T09:00:00,parent@example.org,Avi Cohen,looks great\n" +
			"2026-01-06T10:00:00,other@example.org,Sara Levi,\n"))
	}))
	defer server.Close()

	source := NewCSVSource(formsConfig(config.FormConfig{Key: "parent", SpreadsheetURL: server.URL}), server.Client())

	rows, origin, err := source.Load(context.Background(), "parent")
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet", origin)
	require.Len(t, rows, 2)

	assert.Equal(t, "parent@example.org", rows[0].Email)
	assert.Equal(t, "Avi Cohen", rows[0].Name)
	assert.Equal(t, "2026-01-05T09:00:00", rows[0].Timestamp)
	assert.Equal(t, "looks great", rows[0].Answers["Comments"])
}

func TestLoadFallsBackToLocalCSV(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fallback := filepath.Join(t.TempDir(), "parent.csv")
	require.NoError(t, os.WriteFile(fallback, []byte(
		"Timestamp,Email Address,Student Name\n2026-01-01T08:00:00,parent@example.org,Avi Cohen\n"), 0o644))

	source := NewCSVSource(formsConfig(config.FormConfig{
		Key:            "parent",
		SpreadsheetURL: server.URL,
		FallbackFile:   fallback,
	}), server.Client())

	rows, origin, err := source.Load(context.Background(), "parent")
	assert.Error(t, err, "remote failure is reported alongside the stale rows")
	assert.Equal(t, "local_csv_fallback", origin)
	require.Len(t, rows, 1)
	assert.Equal(t, "parent@example.org", rows[0].Email)
}

func TestLoadRemoteFailureWithoutFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewCSVSource(formsConfig(config.FormConfig{Key: "parent", SpreadsheetURL: server.URL}), server.Client())

	rows, _, err := source.Load(context.Background(), "parent")
	assert.Error(t, err)
	assert.Nil(t, rows)
}

func TestLoadLocalOnly(t *testing.T) {
	t.Parallel()

	local := filepath.Join(t.TempDir(), "reference.csv")
	require.NoError(t, os.WriteFile(local, []byte(
		"Timestamp,Email Address,Student Name\n1,ref@example.org,Avi Cohen\n"), 0o644))

	source := NewCSVSource(formsConfig(config.FormConfig{Key: "reference_1", FallbackFile: local}), nil)

	rows, origin, err := source.Load(context.Background(), "reference_1")
	require.NoError(t, err)
	assert.Equal(t, "local_csv", origin)
	assert.Len(t, rows, 1)
}

func TestLoadMissingLocalFileIsEmpty(t *testing.T) {
	t.Parallel()

	source := NewCSVSource(formsConfig(config.FormConfig{
		Key:          "reference_1",
		FallbackFile: filepath.Join(t.TempDir(), "missing.csv"),
	}), nil)

	rows, _, err := source.Load(context.Background(), "reference_1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadUnknownForm(t *testing.T) {
	t.Parallel()

	source := NewCSVSource(formsConfig(), nil)
	_, _, err := source.Load(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSpreadsheetURLResolution(t *testing.T) {
	t.Parallel()

	sharing := config.FormConfig{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/abc-123_XY/edit#gid=0",
		Sheet:          "Form Responses 1",
	}
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc-123_XY/gviz/tq?tqx=out:csv&sheet=Form%20Responses%201",
		csvURL(sharing))

	bare := config.FormConfig{SpreadsheetURL: "abc-123_XY"}
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc-123_XY/export?format=csv",
		csvURL(bare))

	direct := config.FormConfig{SpreadsheetURL: "https://example.org/export.csv"}
	assert.Equal(t, "https://example.org/export.csv", csvURL(direct))
}
