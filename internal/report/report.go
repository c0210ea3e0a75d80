package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/domain"
)

// IssueType labels one hygiene finding on the action list.
type IssueType string

const (
	IssueStale           IssueType = "STALE"
	IssueMissingNextStep IssueType = "MISSING_NEXT_STEP"
	IssueMissingStatus   IssueType = "MISSING_STATUS"
)

// ActionRow is one line of the exported action list.
type ActionRow struct {
	Name      string
	Status    string
	Owners    string
	Source    string
	Issue     IssueType
	DaysStale int
	URL       string
}

// Analysis summarizes record hygiene across all collections.
type Analysis struct {
	StatusCounts    map[string]int
	OwnerCounts     map[string]int
	MissingOwner    []string
	MissingNextStep []string
	MissingStatus   []string
	StaleCount      int
	ActionRows      []ActionRow
}

// Analyze walks canonical records and collects counts and action items.
func Analyze(records []domain.CanonicalRecord) Analysis {
	a := Analysis{
		StatusCounts: map[string]int{},
		OwnerCounts:  map[string]int{},
	}

	for _, record := range records {
		status := record.CanonicalStatus
		if status == "" {
			status = "(No Status)"
			a.MissingStatus = append(a.MissingStatus, record.Name)
			a.ActionRows = append(a.ActionRows, actionRow(record, status, IssueMissingStatus))
		}
		a.StatusCounts[status]++

		if record.HasAssignee() {
			for _, owner := range record.Assignees {
				a.OwnerCounts[owner]++
			}
		} else {
			a.MissingOwner = append(a.MissingOwner, record.Name)
		}

		if record.NextStep == "" {
			a.MissingNextStep = append(a.MissingNextStep, record.Name)
			a.ActionRows = append(a.ActionRows, actionRow(record, status, IssueMissingNextStep))
		}

		if record.IsStale {
			a.StaleCount++
			a.ActionRows = append(a.ActionRows, actionRow(record, status, IssueStale))
		}
	}

	// Stale rows sort worst-first so the action list leads with them.
	sort.SliceStable(a.ActionRows, func(i, j int) bool {
		return a.ActionRows[i].DaysStale > a.ActionRows[j].DaysStale
	})

	return a
}

func actionRow(record domain.CanonicalRecord, status string, issue IssueType) ActionRow {
	return ActionRow{
		Name:      record.Name,
		Status:    status,
		Owners:    ownersString(record.Assignees),
		Source:    record.SourceLabel,
		Issue:     issue,
		DaysStale: record.DaysSinceEdit,
		URL:       record.URL,
	}
}

func ownersString(owners []string) string {
	if len(owners) == 0 {
		return "(unassigned)"
	}
	return strings.Join(owners, ", ")
}

// ExportCSVs writes the summary and action-list files.
func ExportCSVs(a Analysis, total int, projection domain.ProjectionResult, cfg config.ReportConfig) error {
	if err := writeSummary(a, total, projection, cfg.SummaryCSV); err != nil {
		return err
	}
	return writeActions(a, cfg.ActionsCSV)
}

func writeSummary(a Analysis, total int, projection domain.ProjectionResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	rows := [][]string{
		{"Metric", "Value"},
		{"Total Records", strconv.Itoa(total)},
		{"Missing Assigned Staff", strconv.Itoa(len(a.MissingOwner))},
		{"Missing Next Step", strconv.Itoa(len(a.MissingNextStep))},
		{"Missing Status", strconv.Itoa(len(a.MissingStatus))},
		{"Stale Records", strconv.Itoa(a.StaleCount)},
		{"Enrolled", strconv.Itoa(projection.EnrolledCount)},
		{"Reenrollment Risk", strconv.Itoa(projection.ReenrollmentRisk)},
		{"Projected Total", strconv.FormatFloat(projection.ProjectedTotal, 'f', 2, 64)},
		{},
	}
	rows = append(rows, []string{"Status", "Count"})
	for _, status := range sortedKeys(a.StatusCounts) {
		rows = append(rows, []string{status, strconv.Itoa(a.StatusCounts[status])})
	}
	rows = append(rows, []string{}, []string{"Assigned Staff", "Count"})
	for _, owner := range sortedKeys(a.OwnerCounts) {
		rows = append(rows, []string{owner, strconv.Itoa(a.OwnerCounts[owner])})
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary csv: %w", err)
	}
	return nil
}

func writeActions(a Analysis, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create actions csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"name", "status", "owners", "source", "issue_type", "days_stale", "url"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write actions header: %w", err)
	}

	for _, row := range a.ActionRows {
		record := []string{
			row.Name,
			row.Status,
			row.Owners,
			row.Source,
			string(row.Issue),
			strconv.Itoa(row.DaysStale),
			row.URL,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write action row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush actions csv: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Highest count first, name as tie-break, like the printed report.
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
