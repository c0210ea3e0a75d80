package recordstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
)

func testConfig(baseURL string) (config.RecordStoreConfig, []config.SourceConfig) {
	cfg := config.RecordStoreConfig{
		BaseURL:                 baseURL,
		Token:                   "secret",
		StatusField:             "Status",
		AssignedField:           "Assigned Staff",
		NextStepField:           "Next Step",
		EmailField:              "Student Email",
		AltEmailField:           "Parent Email",
		AssessmentStatusField:   "Assessment Status",
		AssessmentDateField:     "Assessment Date",
		AssessorNameField:       "Assessor Name",
		AssessorEmailField:      "Assessor Email",
		AssessmentRevisionField: "Assessment Revision",
		AttachmentsField:        "Files & media",
	}
	sources := []config.SourceConfig{
		{Label: "New Prospects", CollectionID: "prospects"},
	}
	return cfg, sources
}

const pageOne = `{
  "results": [
    {
      "id": "rec-1",
      "url": "https://records.example.org/rec-1",
      "created_time": "2026-01-02T10:00:00Z",
      "last_edited_time": "2026-03-01T10:00:00Z",
      "properties": {
        "Name": {"type": "title", "title": [{"plain_text": "Avi "}, {"plain_text": "Cohen"}]},
        "Status": {"type": "status", "status": {"name": "Potential Visit"}},
        "Assigned Staff": {"type": "multi_select", "multi_select": [{"name": "Rivka"}, {"name": "Dov"}]},
        "Student Email": {"type": "email", "email": "avi@example.org"},
        "Parent Email": {"type": "rich_text", "rich_text": [{"plain_text": " parent@example.org "}]},
        "Next Step": {"type": "rich_text", "rich_text": [{"plain_text": "Schedule visit"}]},
        "Assessment Status": {"type": "select", "select": {"name": "Completed"}},
        "Assessment Date": {"type": "rich_text", "rich_text": [{"plain_text": "2026-02-20"}]},
        "Assessor Name": {"type": "rich_text", "rich_text": [{"plain_text": "Rivka"}]},
        "Assessor Email": {"type": "email", "email": "rivka@example.org"},
        "Assessment Revision": {"type": "number", "number": 2},
        "Files & media": {"type": "files", "files": [
          {"name": "Transcript", "type": "file", "file": {"url": "https://files.example.org/t.pdf"}},
          {"type": "external", "external": {"url": "https://drive.example.org/ref"}}
        ]}
      }
    }
  ],
  "has_more": true,
  "next_cursor": "cursor-2"
}`

const pageTwo = `{
  "results": [
    {
      "id": "rec-2",
      "properties": {
        "Name": {"type": "title", "title": [{"plain_text": "Sara Levi"}]},
        "Status": {"type": "select", "select": {"name": "Enrolled"}}
      }
    }
  ],
  "has_more": false
}`

func TestFetchAllPaginates(t *testing.T) {
	t.Parallel()

	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/prospects/query" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		var q queryRequest
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		cursors = append(cursors, q.StartCursor)

		if q.StartCursor == "" {
			_, _ = io.WriteString(w, pageOne)
			return
		}
		_, _ = io.WriteString(w, pageTwo)
	}))
	defer server.Close()

	cfg, sources := testConfig(server.URL)
	client := NewClient(cfg, sources, server.Client())

	records, err := client.FetchAll(context.Background(), []string{"New Prospects"})
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if cursors[0] != "" || cursors[1] != "cursor-2" {
		t.Fatalf("unexpected cursor sequence: %v", cursors)
	}

	first := records[0]
	if first.ID != "rec-1" || first.SourceLabel != "New Prospects" {
		t.Fatalf("unexpected identity: %+v", first)
	}
	if first.Name != "Avi Cohen" {
		t.Fatalf("unexpected name: %s", first.Name)
	}
	if first.RawStatus != "Potential Visit" {
		t.Fatalf("unexpected raw status: %s", first.RawStatus)
	}
	if len(first.Assignees) != 2 || first.Assignees[0] != "Rivka" {
		t.Fatalf("unexpected assignees: %v", first.Assignees)
	}
	if len(first.Emails) != 2 || first.Emails[0] != "avi@example.org" || first.Emails[1] != "parent@example.org" {
		t.Fatalf("unexpected emails: %v", first.Emails)
	}
	if first.NextStep != "Schedule visit" {
		t.Fatalf("unexpected next step: %s", first.NextStep)
	}
	if first.Assessment.Phase != domain.AssessmentCompleted {
		t.Fatalf("unexpected assessment phase: %s", first.Assessment.Phase)
	}
	if first.Assessment.AssessorName != "Rivka" || first.Assessment.CompletionDate != "2026-02-20" {
		t.Fatalf("unexpected assessment fields: %+v", first.Assessment)
	}
	if first.Assessment.Revision != 2 {
		t.Fatalf("unexpected revision: %d", first.Assessment.Revision)
	}
	if first.AssessorEmail != "rivka@example.org" {
		t.Fatalf("unexpected assessor email: %s", first.AssessorEmail)
	}
	if len(first.Attachments) != 2 {
		t.Fatalf("unexpected attachments: %v", first.Attachments)
	}
	if first.Attachments[1].Name != "Document" || first.Attachments[1].URL != "https://drive.example.org/ref" {
		t.Fatalf("unexpected external attachment: %+v", first.Attachments[1])
	}
	if first.LastModified.IsZero() {
		t.Fatal("expected last modified to parse")
	}

	second := records[1]
	if second.Name != "Sara Levi" || second.RawStatus != "Enrolled" {
		t.Fatalf("unexpected second record: %+v", second)
	}
	if second.Assessment.Phase != domain.AssessmentNotTriggered {
		t.Fatalf("expected default assessment phase, got %s", second.Assessment.Phase)
	}
}

func TestFetchAllUnknownCollection(t *testing.T) {
	t.Parallel()

	cfg, sources := testConfig("http://unused")
	client := NewClient(cfg, sources, nil)

	_, err := client.FetchAll(context.Background(), []string{"Waitlist"})
	if err == nil {
		t.Fatal("expected error for unconfigured collection")
	}
	if domain.KindOf(err) != domain.ErrKindConfiguration {
		t.Fatalf("unexpected error kind: %s", domain.KindOf(err))
	}
}

func TestFetchAllSourceUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg, sources := testConfig(server.URL)
	client := NewClient(cfg, sources, server.Client())

	_, err := client.FetchAll(context.Background(), []string{"New Prospects"})
	if domain.KindOf(err) != domain.ErrKindSourceUnavailable {
		t.Fatalf("unexpected error kind: %v", err)
	}
}

func TestUpdateField(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotBody map[string]map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method: %s", r.Method)
		}
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}))
	defer server.Close()

	cfg, sources := testConfig(server.URL)
	client := NewClient(cfg, sources, server.Client())

	err := client.UpdateField(context.Background(), "rec-1", "Assessment Status", "Completed")
	if err != nil {
		t.Fatalf("UpdateField error: %v", err)
	}

	if gotPath != "/records/rec-1" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["properties"]["Assessment Status"] != "Completed" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}
