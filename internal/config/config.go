package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"EnrollmentHealth/internal/domain"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "ENROLLMENT_HEALTH_CONFIG"
	recordStoreURLEnv  = "RECORD_STORE_URL"
	recordStoreKeyEnv  = "RECORD_STORE_TOKEN"
	trackingDSNEnv     = "TRACKING_DSN"
	emailSenderEnv     = "EMAIL_SENDER"
	emailPasswordEnv   = "EMAIL_APP_PASSWORD"
)

// Config holds high-level settings required across the application.
type Config struct {
	RecordStore RecordStoreConfig `yaml:"recordStore"`
	Sources     []SourceConfig    `yaml:"sources"`
	Statuses    StatusConfig      `yaml:"statuses"`
	Forms       FormsConfig       `yaml:"forms"`
	Reminders   ReminderConfig    `yaml:"reminders"`
	Projection  ProjectionConfig  `yaml:"projection"`
	Report      ReportConfig      `yaml:"report"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RecordStoreConfig describes the remote record store and its field names.
type RecordStoreConfig struct {
	BaseURL                 string `yaml:"baseUrl"`
	Token                   string `yaml:"token"`
	StatusField             string `yaml:"statusField"`
	AssignedField           string `yaml:"assignedField"`
	NextStepField           string `yaml:"nextStepField"`
	EmailField              string `yaml:"emailField"`
	AltEmailField           string `yaml:"altEmailField"`
	AssessmentStatusField   string `yaml:"assessmentStatusField"`
	AssessmentDateField     string `yaml:"assessmentDateField"`
	AssessorNameField       string `yaml:"assessorNameField"`
	AssessorEmailField      string `yaml:"assessorEmailField"`
	AssessmentRevisionField string `yaml:"assessmentRevisionField"`
	AttachmentsField        string `yaml:"attachmentsField"`
}

// SourceConfig describes one origin collection and its status vocabulary.
type SourceConfig struct {
	Label           string            `yaml:"label"`
	CollectionID    string            `yaml:"collectionId"`
	StatusMap       map[string]string `yaml:"statusMap"`
	DefaultStatus   string            `yaml:"defaultStatus"`
	DefaultCategory string            `yaml:"defaultCategory"`
}

// StatusConfig holds the canonical taxonomy shared across sources.
type StatusConfig struct {
	Categories      map[string]string `yaml:"categories"`
	Synonyms        map[string]string `yaml:"synonyms"`
	NeedsAssessment []string          `yaml:"needsAssessment"`
	FastTrack       []string          `yaml:"fastTrack"`
	Enrolled        []string          `yaml:"enrolled"`
	RetentionRisk   []string          `yaml:"retentionRisk"`
	StaleDays       int               `yaml:"staleDays"`
}

// FormsConfig wires the external intake forms and packet weights.
type FormsConfig struct {
	TimestampColumn string       `yaml:"timestampColumn"`
	EmailColumn     string       `yaml:"emailColumn"`
	NameColumn      string       `yaml:"nameColumn"`
	Forms           []FormConfig `yaml:"forms"`
}

// FormConfig describes one required form: where to fetch it and its weight.
type FormConfig struct {
	Key            string `yaml:"key"`
	SpreadsheetURL string `yaml:"spreadsheetUrl"`
	Sheet          string `yaml:"sheet"`
	FallbackFile   string `yaml:"fallbackFile"`
	Weight         int    `yaml:"weight"`
}

// ReminderConfig controls the assessment reminder batch.
type ReminderConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"intervalHours"`
	TrackingFile  string `yaml:"trackingFile"`
	TrackingDSN   string `yaml:"trackingDsn"`
	Sender        string `yaml:"sender"`
	Password      string `yaml:"-"`
	SMTPHost      string `yaml:"smtpHost"`
	SMTPPort      int    `yaml:"smtpPort"`
	DashboardURL  string `yaml:"dashboardUrl"`
}

// ProjectionConfig parameterizes the enrollment forecast.
type ProjectionConfig struct {
	Rate float64 `yaml:"rate"`
	Goal int     `yaml:"goal"`
}

// ReportConfig names the CSV exports.
type ReportConfig struct {
	SummaryCSV string `yaml:"summaryCsv"`
	ActionsCSV string `yaml:"actionsCsv"`
}

// SchedulerConfig defines when refresh batches should run.
type SchedulerConfig struct {
	IntervalHours int            `yaml:"intervalHours"`
	Timezone      string         `yaml:"timezone"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to the config path env var.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// Validate reports fatal configuration problems. It is called once at
// process start; any error here aborts the run.
func (c Config) Validate() error {
	if c.RecordStore.BaseURL == "" {
		return domain.Errorf(domain.ErrKindConfiguration, "record store base URL is not set")
	}
	if c.RecordStore.Token == "" {
		return domain.Errorf(domain.ErrKindConfiguration, "record store token is not set (set %s)", recordStoreKeyEnv)
	}
	for _, form := range c.Forms.Forms {
		if form.Key == "" {
			return domain.Errorf(domain.ErrKindConfiguration, "form without a key in forms config")
		}
		if form.Weight <= 0 {
			return domain.Errorf(domain.ErrKindConfiguration, "form %s must have a positive weight", form.Key)
		}
	}
	for _, src := range c.Sources {
		for raw, canonical := range src.StatusMap {
			if _, ok := c.Statuses.Categories[canonical]; !ok {
				return domain.Errorf(domain.ErrKindConfiguration,
					"source %s maps %q to %q which has no category", src.Label, raw, canonical)
			}
		}
	}
	if c.Reminders.Enabled {
		if c.Reminders.Sender == "" {
			return domain.Errorf(domain.ErrKindConfiguration, "reminders enabled but sender is not set (set %s)", emailSenderEnv)
		}
		if c.Reminders.Password == "" {
			return domain.Errorf(domain.ErrKindConfiguration, "reminders enabled but password is not set (set %s)", emailPasswordEnv)
		}
		if c.Reminders.IntervalHours <= 0 {
			return domain.Errorf(domain.ErrKindConfiguration, "reminder interval must be positive")
		}
	}
	return nil
}

// Interval returns the reminder dedup window as a duration.
func (r ReminderConfig) Interval() time.Duration {
	return time.Duration(r.IntervalHours) * time.Hour
}

// Weights returns form key -> weight for the packet scorer.
func (f FormsConfig) Weights() map[string]int {
	weights := make(map[string]int, len(f.Forms))
	for _, form := range f.Forms {
		weights[form.Key] = form.Weight
	}
	return weights
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(recordStoreURLEnv); v != "" {
		c.RecordStore.BaseURL = v
	}

	if v := os.Getenv(recordStoreKeyEnv); v != "" {
		c.RecordStore.Token = v
	}

	if v := os.Getenv(trackingDSNEnv); v != "" {
		c.Reminders.TrackingDSN = v
	}

	if v := os.Getenv(emailSenderEnv); v != "" {
		c.Reminders.Sender = v
	}

	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.Reminders.Password = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.RecordStore.BaseURL != "" {
		base.RecordStore.BaseURL = override.RecordStore.BaseURL
	}
	if override.RecordStore.Token != "" {
		base.RecordStore.Token = override.RecordStore.Token
	}
	base.RecordStore = mergeFieldNames(base.RecordStore, override.RecordStore)

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if len(override.Statuses.Categories) > 0 {
		base.Statuses.Categories = override.Statuses.Categories
	}
	if len(override.Statuses.Synonyms) > 0 {
		base.Statuses.Synonyms = override.Statuses.Synonyms
	}
	if len(override.Statuses.NeedsAssessment) > 0 {
		base.Statuses.NeedsAssessment = override.Statuses.NeedsAssessment
	}
	if len(override.Statuses.FastTrack) > 0 {
		base.Statuses.FastTrack = override.Statuses.FastTrack
	}
	if len(override.Statuses.Enrolled) > 0 {
		base.Statuses.Enrolled = override.Statuses.Enrolled
	}
	if len(override.Statuses.RetentionRisk) > 0 {
		base.Statuses.RetentionRisk = override.Statuses.RetentionRisk
	}
	if override.Statuses.StaleDays > 0 {
		base.Statuses.StaleDays = override.Statuses.StaleDays
	}

	if override.Forms.TimestampColumn != "" {
		base.Forms.TimestampColumn = override.Forms.TimestampColumn
	}
	if override.Forms.EmailColumn != "" {
		base.Forms.EmailColumn = override.Forms.EmailColumn
	}
	if override.Forms.NameColumn != "" {
		base.Forms.NameColumn = override.Forms.NameColumn
	}
	if len(override.Forms.Forms) > 0 {
		base.Forms.Forms = override.Forms.Forms
	}

	if override.Reminders.Enabled {
		base.Reminders.Enabled = true
	}
	if override.Reminders.IntervalHours > 0 {
		base.Reminders.IntervalHours = override.Reminders.IntervalHours
	}
	if override.Reminders.TrackingFile != "" {
		base.Reminders.TrackingFile = override.Reminders.TrackingFile
	}
	if override.Reminders.TrackingDSN != "" {
		base.Reminders.TrackingDSN = override.Reminders.TrackingDSN
	}
	if override.Reminders.Sender != "" {
		base.Reminders.Sender = override.Reminders.Sender
	}
	if override.Reminders.SMTPHost != "" {
		base.Reminders.SMTPHost = override.Reminders.SMTPHost
	}
	if override.Reminders.SMTPPort != 0 {
		base.Reminders.SMTPPort = override.Reminders.SMTPPort
	}
	if override.Reminders.DashboardURL != "" {
		base.Reminders.DashboardURL = override.Reminders.DashboardURL
	}

	if override.Projection.Rate > 0 {
		base.Projection.Rate = override.Projection.Rate
	}
	if override.Projection.Goal > 0 {
		base.Projection.Goal = override.Projection.Goal
	}

	if override.Report.SummaryCSV != "" {
		base.Report.SummaryCSV = override.Report.SummaryCSV
	}
	if override.Report.ActionsCSV != "" {
		base.Report.ActionsCSV = override.Report.ActionsCSV
	}

	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func mergeFieldNames(base, override RecordStoreConfig) RecordStoreConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.StatusField, override.StatusField)
	set(&base.AssignedField, override.AssignedField)
	set(&base.NextStepField, override.NextStepField)
	set(&base.EmailField, override.EmailField)
	set(&base.AltEmailField, override.AltEmailField)
	set(&base.AssessmentStatusField, override.AssessmentStatusField)
	set(&base.AssessmentDateField, override.AssessmentDateField)
	set(&base.AssessorNameField, override.AssessorNameField)
	set(&base.AssessorEmailField, override.AssessorEmailField)
	set(&base.AssessmentRevisionField, override.AssessmentRevisionField)
	set(&base.AttachmentsField, override.AttachmentsField)
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		RecordStore: RecordStoreConfig{
			BaseURL:                 "https://records.example.org/v1",
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
		},
		Sources: []SourceConfig{
			{
				Label:        "New Prospects",
				CollectionID: "prospects",
				StatusMap: map[string]string{
					"Not Started":                    "Not Started",
					"Tried to Contact":               "Tried to Contact",
					"Intake Sent":                    "Intake Sent",
					"Potential Visit":                "Prospect - In Review",
					"In Review":                      "Prospect - In Review",
					"Application Sent":               "Application Sent",
					"Application Sent to Fill Out":   "Application Sent",
					"Application Completed":          "Awaiting Final Decision",
					"Awaiting Final Decision":        "Awaiting Final Decision",
					"Enrolled":                       "Enrolled",
					"Not a Good Fit":                 "Not a Good Fit",
					"Application On Pause":           "Application On Pause",
					"Closed":                         "Prospect - Closed",
				},
				DefaultStatus:   "Not Started",
				DefaultCategory: string(domain.CategoryProspectActive),
			},
			{
				Label:        "Reenrollment",
				CollectionID: "reenrollment",
				StatusMap: map[string]string{
					"Not Started":    "Reenrollment - Outreach",
					"Outreach":       "Reenrollment - Outreach",
					"In Progress":    "Reenrollment - In Progress",
					"Confirmed":      "Reenrollment - Confirmed",
					"Retention Risk": "Reenrollment - At Risk",
					"At Risk":        "Reenrollment - At Risk",
				},
				DefaultStatus:   "Reenrollment - Outreach",
				DefaultCategory: string(domain.CategoryReenrollmentActive),
			},
		},
		Statuses: StatusConfig{
			Categories: map[string]string{
				"Not Started":                   string(domain.CategoryProspectActive),
				"Tried to Contact":              string(domain.CategoryProspectActive),
				"Intake Sent":                   string(domain.CategoryProspectActive),
				"Prospect - In Review":          string(domain.CategoryProspectActive),
				"Prospect - Reference Received": string(domain.CategoryProspectActive),
				"Application Sent":              string(domain.CategoryProspectActive),
				"Awaiting Final Decision":       string(domain.CategoryProspectActive),
				"Enrolled":                      string(domain.CategoryEnrolled),
				"Not a Good Fit":                string(domain.CategoryProspectClosed),
				"Application On Pause":          string(domain.CategoryProspectClosed),
				"Prospect - Closed":             string(domain.CategoryProspectClosed),
				"Reenrollment - Outreach":       string(domain.CategoryReenrollmentActive),
				"Reenrollment - In Progress":    string(domain.CategoryReenrollmentActive),
				"Reenrollment - Confirmed":      string(domain.CategoryReenrollmentActive),
				"Reenrollment - At Risk":        string(domain.CategoryReenrollmentRisk),
			},
			Synonyms: map[string]string{
				"Reference Sent to Principal":  "Prospect - Reference Received",
				"Referance Sent to Principal":  "Prospect - Reference Received",
				"Reference Sent to Princpal":   "Prospect - Reference Received",
				"Reference Received":           "Prospect - Reference Received",
			},
			NeedsAssessment: []string{"Prospect - In Review", "Prospect - Reference Received"},
			FastTrack:       []string{"Prospect - Reference Received"},
			Enrolled:        []string{"Enrolled"},
			RetentionRisk:   []string{"Reenrollment - At Risk"},
			StaleDays:       14,
		},
		Forms: FormsConfig{
			TimestampColumn: "Timestamp",
			EmailColumn:     "Email Address",
			NameColumn:      "Student Name",
			Forms: []FormConfig{
				{Key: "parent", FallbackFile: "data/parent_form.csv", Weight: 50},
				{Key: "reference_1", FallbackFile: "data/reference_1.csv", Weight: 25},
				{Key: "reference_2", FallbackFile: "data/reference_2.csv", Weight: 25},
			},
		},
		Reminders: ReminderConfig{
			Enabled:       false,
			IntervalHours: 48,
			TrackingFile:  "reminder_tracking.json",
			SMTPHost:      "smtp.gmail.com",
			SMTPPort:      587,
			DashboardURL:  "https://enrollment.example.org/dashboard",
		},
		Projection: ProjectionConfig{Rate: 0.95, Goal: 102},
		Report: ReportConfig{
			SummaryCSV: "enrollment_health_summary.csv",
			ActionsCSV: "enrollment_health_action_list.csv",
		},
		Scheduler: SchedulerConfig{IntervalHours: 3, Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info"},
	}
}
