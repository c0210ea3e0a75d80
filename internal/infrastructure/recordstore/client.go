package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
	"EnrollmentHealth/internal/ports"
)

const pageSize = 100

// Client talks to the remote record store API. Each configured source
// collection is queried page by page and every fetched record is tagged
// with its originating collection label.
type Client struct {
	baseURL string
	token   string
	fields  config.RecordStoreConfig
	sources map[string]config.SourceConfig
	http    *http.Client
}

var _ ports.RecordStore = (*Client)(nil)

// NewClient builds a reusable client; a nil http.Client gets a 20s timeout.
func NewClient(cfg config.RecordStoreConfig, sources []config.SourceConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	bySource := make(map[string]config.SourceConfig, len(sources))
	for _, src := range sources {
		bySource[src.Label] = src
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		fields:  cfg,
		sources: bySource,
		http:    client,
	}
}

// FetchAll pulls every record from the named collections.
func (c *Client) FetchAll(ctx context.Context, collectionLabels []string) ([]domain.SourceRecord, error) {
	var combined []domain.SourceRecord

	for _, label := range collectionLabels {
		src, ok := c.sources[label]
		if !ok {
			return nil, domain.Errorf(domain.ErrKindConfiguration, "collection %s is not configured", label)
		}

		pages, err := c.fetchCollection(ctx, src.CollectionID)
		if err != nil {
			return nil, domain.NewError(domain.ErrKindSourceUnavailable,
				fmt.Errorf("collection %s: %w", label, err))
		}

		for _, page := range pages {
			combined = append(combined, c.toRecord(page, label))
		}
	}

	return combined, nil
}

// UpdateField writes a single field value back to one record.
func (c *Client) UpdateField(ctx context.Context, recordID, field, value string) error {
	body, err := json.Marshal(map[string]any{
		"properties": map[string]string{field: value},
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	url := fmt.Sprintf("%s/records/%s", c.baseURL, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrKindSourceUnavailable, fmt.Errorf("update record %s: %w", recordID, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewError(domain.ErrKindSourceUnavailable,
			fmt.Errorf("update record %s: store returned %s", recordID, resp.Status))
	}

	return nil
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Properties     map[string]property `json:"properties"`
}

type textSpan struct {
	PlainText string `json:"plain_text"`
}

type option struct {
	Name string `json:"name"`
}

type urlRef struct {
	URL string `json:"url"`
}

type fileRef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	File     urlRef `json:"file"`
	External urlRef `json:"external"`
}

// property mirrors the store's tagged-union field encoding: the type tag
// says which of the payload members is populated.
type property struct {
	Type        string     `json:"type"`
	Title       []textSpan `json:"title"`
	RichText    []textSpan `json:"rich_text"`
	Select      *option    `json:"select"`
	Status      *option    `json:"status"`
	MultiSelect []option   `json:"multi_select"`
	Email       string     `json:"email"`
	Number      *float64   `json:"number"`
	Files       []fileRef  `json:"files"`
}

func (c *Client) fetchCollection(ctx context.Context, collectionID string) ([]page, error) {
	var (
		results []page
		cursor  string
	)

	for {
		body, err := json.Marshal(queryRequest{PageSize: pageSize, StartCursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("marshal query: %w", err)
		}

		url := fmt.Sprintf("%s/collections/%s/query", c.baseURL, collectionID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("query collection: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("store returned %s", resp.Status)
		}

		var decoded queryResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("decode query response: %w", err)
		}
		if err := resp.Body.Close(); err != nil {
			return nil, fmt.Errorf("close response body: %w", err)
		}

		results = append(results, decoded.Results...)
		if !decoded.HasMore {
			break
		}
		cursor = decoded.NextCursor
	}

	return results, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func (c *Client) toRecord(p page, label string) domain.SourceRecord {
	props := p.Properties

	record := domain.SourceRecord{
		ID:            p.ID,
		SourceLabel:   label,
		Name:          titleValue(props),
		RawStatus:     selectLikeValue(props, c.fields.StatusField),
		Assignees:     multiSelectNames(props, c.fields.AssignedField),
		AssessorEmail: emailValue(props, c.fields.AssessorEmailField),
		NextStep:      richTextValue(props, c.fields.NextStepField),
		LastModified:  parseTime(p.LastEditedTime),
		CreatedAt:     parseTime(p.CreatedTime),
		URL:           p.URL,
		Attachments:   fileLinks(props, c.fields.AttachmentsField),
		Extra:         map[string]string{},
	}

	for _, field := range []string{c.fields.EmailField, c.fields.AltEmailField} {
		if v := emailValue(props, field); v != "" {
			record.Emails = append(record.Emails, v)
		}
	}

	record.Assessment = domain.AssessmentState{
		Phase:          assessmentPhase(selectLikeValue(props, c.fields.AssessmentStatusField)),
		AssessorName:   richTextValue(props, c.fields.AssessorNameField),
		CompletionDate: richTextValue(props, c.fields.AssessmentDateField),
		Revision:       numberValue(props, c.fields.AssessmentRevisionField),
	}

	return record
}

func assessmentPhase(raw string) domain.AssessmentPhase {
	switch raw {
	case string(domain.AssessmentCompleted):
		return domain.AssessmentCompleted
	case string(domain.AssessmentPending):
		return domain.AssessmentPending
	default:
		return domain.AssessmentNotTriggered
	}
}

func titleValue(props map[string]property) string {
	for _, p := range props {
		if p.Type == "title" {
			return joinSpans(p.Title)
		}
	}
	return ""
}

// selectLikeValue reads a field that can be encoded either as a classic
// select or as the store's special status type.
func selectLikeValue(props map[string]property, field string) string {
	p, ok := props[field]
	if !ok {
		return ""
	}
	switch p.Type {
	case "select":
		if p.Select != nil {
			return p.Select.Name
		}
	case "status":
		if p.Status != nil {
			return p.Status.Name
		}
	}
	return ""
}

func multiSelectNames(props map[string]property, field string) []string {
	p, ok := props[field]
	if !ok || p.Type != "multi_select" {
		return nil
	}
	var names []string
	for _, opt := range p.MultiSelect {
		if opt.Name != "" {
			names = append(names, opt.Name)
		}
	}
	return names
}

func richTextValue(props map[string]property, field string) string {
	p, ok := props[field]
	if !ok || p.Type != "rich_text" {
		return ""
	}
	return strings.TrimSpace(joinSpans(p.RichText))
}

// emailValue accepts either a native email field or free-form rich text,
// since older collections store contact addresses as plain text.
func emailValue(props map[string]property, field string) string {
	p, ok := props[field]
	if !ok {
		return ""
	}
	switch p.Type {
	case "email":
		return strings.TrimSpace(p.Email)
	case "rich_text":
		return strings.TrimSpace(joinSpans(p.RichText))
	}
	return ""
}

func numberValue(props map[string]property, field string) int {
	p, ok := props[field]
	if !ok || p.Type != "number" || p.Number == nil {
		return 0
	}
	return int(*p.Number)
}

func fileLinks(props map[string]property, field string) []domain.Attachment {
	p, ok := props[field]
	if !ok || p.Type != "files" {
		return nil
	}
	var links []domain.Attachment
	for _, f := range p.Files {
		name := f.Name
		if name == "" {
			name = "Document"
		}
		url := f.File.URL
		if f.Type == "external" {
			url = f.External.URL
		}
		if url != "" {
			links = append(links, domain.Attachment{Name: name, URL: url})
		}
	}
	return links
}

func joinSpans(spans []textSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.PlainText)
	}
	return b.String()
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
