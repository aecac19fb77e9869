package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Today freezes the clock. Defaults to 2025-01-01.
	Today time.Time `yaml:"today,omitempty"`

	// Data is a seed document applied before the first step.
	Data yaml.Node `yaml:"data,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single engine operation. Only the fields the step type reads
// need to be set.
type Step struct {
	Do string `yaml:"do"`

	// As names the draft, schedule or issued invoices for later steps.
	As string `yaml:"as,omitempty"`

	Coachee  string `yaml:"coachee,omitempty"`
	Session  string `yaml:"session,omitempty"`
	Draft    string `yaml:"draft,omitempty"`
	Invoice  string `yaml:"invoice,omitempty"`
	Schedule string `yaml:"schedule,omitempty"`
	Rate     string `yaml:"rate,omitempty"`
	Status   string `yaml:"status,omitempty"`

	Consent string `yaml:"consent,omitempty"`
	Policy  string `yaml:"policy,omitempty"`

	Description string     `yaml:"description,omitempty"`
	Quantity    float64    `yaml:"quantity,omitempty"`
	Price       float64    `yaml:"price,omitempty"`
	Index       int        `yaml:"index,omitempty"`
	Interval    string     `yaml:"interval,omitempty"`
	NextDue     *time.Time `yaml:"next_due,omitempty"`
	Days        int        `yaml:"days,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome a step must have.
type Expect struct {
	// Error is a rule error code. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// AlreadyBilled lists sessions a finalize must report as billed elsewhere.
	AlreadyBilled []string `yaml:"already_billed,omitempty"`

	// Issued is the number of invoices issue_due must create.
	Issued *int `yaml:"issued,omitempty"`
}

// Step type constants.
const (
	StepCreateInvoice   = "create_invoice"
	StepEditInvoice     = "edit_invoice"
	StepSelectCoachee   = "select_coachee"
	StepAddSession      = "add_session"
	StepAddItem         = "add_item"
	StepRemoveItem      = "remove_item"
	StepSaveDraft       = "save_draft"
	StepFinalize        = "finalize"
	StepSetStatus       = "set_status"
	StepGrantConsent    = "grant_consent"
	StepCreateSchedule  = "create_schedule"
	StepPauseSchedule   = "pause_schedule"
	StepResumeSchedule  = "resume_schedule"
	StepAdvanceSchedule = "advance_schedule"
	StepRemoveSchedule  = "remove_schedule"
	StepIssueDue        = "issue_due"
	StepAdvanceClock    = "advance_clock"
)

// Assertion validates the final state.
type Assertion struct {
	Type string `yaml:"type"`

	Invoice  string `yaml:"invoice,omitempty"`
	Session  string `yaml:"session,omitempty"`
	Coachee  string `yaml:"coachee,omitempty"`
	Schedule string `yaml:"schedule,omitempty"`
	Consent  string `yaml:"consent,omitempty"`

	Equals string `yaml:"equals,omitempty"`

	Subtotal *float64 `yaml:"subtotal,omitempty"`
	Tax      *float64 `yaml:"tax,omitempty"`
	Total    *float64 `yaml:"total,omitempty"`

	Billed  *bool `yaml:"billed,omitempty"`
	Granted *bool `yaml:"granted,omitempty"`
	Count   *int  `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertInvoiceNumber  = "invoice_number"
	AssertInvoiceTotals  = "invoice_totals"
	AssertInvoiceStatus  = "invoice_status"
	AssertInvoiceCount   = "invoice_count"
	AssertSessionBilled  = "session_billed"
	AssertUnbilledCount  = "unbilled_count"
	AssertConsentGranted = "consent_granted"
	AssertDocumentCount  = "document_count"
	AssertScheduleDue    = "schedule_due"
	AssertPersisted      = "persisted"
)

var stepFields = map[string][]string{
	StepCreateInvoice:   nil,
	StepEditInvoice:     {"invoice"},
	StepSelectCoachee:   {"draft", "coachee"},
	StepAddSession:      {"draft", "session"},
	StepAddItem:         {"draft", "description"},
	StepRemoveItem:      {"draft"},
	StepSaveDraft:       {"draft"},
	StepFinalize:        {"draft", "status"},
	StepSetStatus:       {"invoice", "status"},
	StepGrantConsent:    {"coachee", "consent"},
	StepCreateSchedule:  {"coachee", "rate", "interval"},
	StepPauseSchedule:   {"schedule"},
	StepResumeSchedule:  {"schedule"},
	StepAdvanceSchedule: {"schedule"},
	StepRemoveSchedule:  {"schedule"},
	StepIssueDue:        nil,
	StepAdvanceClock:    {"days"},
}

var assertionFields = map[string][]string{
	AssertInvoiceNumber:  {"invoice", "equals"},
	AssertInvoiceTotals:  {"invoice"},
	AssertInvoiceStatus:  {"invoice", "equals"},
	AssertInvoiceCount:   {"count"},
	AssertSessionBilled:  {"session", "billed"},
	AssertUnbilledCount:  {"coachee", "count"},
	AssertConsentGranted: {"coachee", "consent", "granted"},
	AssertDocumentCount:  {"coachee", "count"},
	AssertScheduleDue:    {"schedule", "equals"},
	AssertPersisted:      nil,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Do == "" {
			return fmt.Errorf("steps[%d]: do is required", i)
		}
		required, ok := stepFields[step.Do]
		if !ok {
			return fmt.Errorf("steps[%d]: unknown step %q", i, step.Do)
		}
		for _, f := range required {
			if !step.has(f) {
				return fmt.Errorf("steps[%d]: %s is required for %s", i, f, step.Do)
			}
		}
	}

	for i, a := range s.Assertions {
		if a.Type == "" {
			return fmt.Errorf("assertions[%d]: type is required", i)
		}
		required, ok := assertionFields[a.Type]
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		for _, f := range required {
			if !a.has(f) {
				return fmt.Errorf("assertions[%d]: %s is required for %s", i, f, a.Type)
			}
		}
	}
	return nil
}

func (s Step) has(field string) bool {
	switch field {
	case "coachee":
		return s.Coachee != ""
	case "session":
		return s.Session != ""
	case "draft":
		return s.Draft != ""
	case "invoice":
		return s.Invoice != ""
	case "schedule":
		return s.Schedule != ""
	case "rate":
		return s.Rate != ""
	case "status":
		return s.Status != ""
	case "consent":
		return s.Consent != ""
	case "description":
		return s.Description != ""
	case "interval":
		return s.Interval != ""
	case "days":
		return s.Days != 0
	}
	return false
}

func (a Assertion) has(field string) bool {
	switch field {
	case "invoice":
		return a.Invoice != ""
	case "session":
		return a.Session != ""
	case "coachee":
		return a.Coachee != ""
	case "schedule":
		return a.Schedule != ""
	case "consent":
		return a.Consent != ""
	case "equals":
		return a.Equals != ""
	case "billed":
		return a.Billed != nil
	case "granted":
		return a.Granted != nil
	case "count":
		return a.Count != nil
	}
	return false
}
