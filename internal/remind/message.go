package remind

import (
	"fmt"
	"html/template"
	"strings"
)

// Reminder carries everything needed to compose one reminder message.
type Reminder struct {
	RecordID     string
	ProspectName string
	AssessorName string
	Recipient    string
	Status       string
	DaysInReview int
	DashboardURL string
}

// Subject builds the reminder subject line.
func (r Reminder) Subject() string {
	return fmt.Sprintf("Assessment Reminder: %s", r.ProspectName)
}

var bodyTemplate = template.Must(template.New("reminder").Parse(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>Assessment Reminder</h2>
    <p>Hi {{.Greeting}},</p>
    <p>This is a reminder that <strong>{{.ProspectName}}</strong> is waiting for their assessment to be completed.</p>
    <div style="background-color: #f1f1f1; padding: 15px; border-left: 4px solid #3b82f6;">
      <p class="prospect"><strong>Prospect:</strong> {{.ProspectName}}</p>
      <p class="status"><strong>Status:</strong> {{.Status}}</p>
      <p class="days"><strong>Days in pipeline:</strong> {{.DaysInReview}}</p>
    </div>
    <p><strong>Next Steps:</strong></p>
    <ol>
      <li>Open the <a href="{{.DashboardURL}}">enrollment dashboard</a></li>
      <li>Find {{.ProspectName}} in the prospects list</li>
      <li>Complete the assessment rubric and submit</li>
    </ol>
    <p style="color: #666; font-size: 0.9em;">
      You will keep receiving this reminder until the assessment is completed.
    </p>
  </body>
</html>`))

// Body renders the HTML reminder body.
func (r Reminder) Body() (string, error) {
	greeting := r.AssessorName
	if greeting == "" {
		greeting = "there"
	}

	var b strings.Builder
	err := bodyTemplate.Execute(&b, struct {
		Greeting     string
		ProspectName string
		Status       string
		DaysInReview int
		DashboardURL string
	}{
		Greeting:     greeting,
		ProspectName: r.ProspectName,
		Status:       r.Status,
		DaysInReview: r.DaysInReview,
		DashboardURL: r.DashboardURL,
	})
	if err != nil {
		return "", fmt.Errorf("render reminder body: %w", err)
	}

	return b.String(), nil
}
