package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/coachbook/internal/domain"
)

//go:embed schema.cue
var schemaSrc string

// Format identifies a seed encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unsupported seed file %q: want .yaml, .yml, .json or .cue", path)
}

// Seed holds collections to import. Nil fields are not imported.
type Seed struct {
	Settings          *domain.Settings                  `json:"settings,omitempty"`
	Coachees          []domain.Coachee                  `json:"coachees,omitempty"`
	Sessions          []domain.Session                  `json:"sessions,omitempty"`
	Invoices          []domain.Invoice                  `json:"invoices,omitempty"`
	RecurringInvoices []domain.RecurringInvoiceSchedule `json:"recurringInvoices,omitempty"`
	ServiceRates      []domain.ServiceRate              `json:"serviceRates,omitempty"`
	Documents         []domain.Document                 `json:"documents,omitempty"`
	JournalEntries    []domain.JournalEntry             `json:"journalEntries,omitempty"`
	Tasks             []domain.Task                     `json:"tasks,omitempty"`
}

// ValidationError reports seed data that does not satisfy the schema.
type ValidationError struct {
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid seed %s: %v", e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Load reads and validates a seed file.
func Load(path string) (*Seed, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data, format, filepath.Base(path))
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte, format Format, source string) (*Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile seed schema: %w", err)
	}

	var v cue.Value
	switch format {
	case FormatYAML:
		raw, err := decodeYAML(data)
		if err != nil {
			return nil, &ValidationError{Source: source, Err: err}
		}
		js, err := json.Marshal(raw)
		if err != nil {
			return nil, &ValidationError{Source: source, Err: err}
		}
		v = ctx.CompileBytes(js, cue.Filename(source))
	case FormatJSON, FormatCUE:
		v = ctx.CompileBytes(data, cue.Filename(source))
	default:
		return nil, fmt.Errorf("unknown seed format %q", format)
	}
	if err := v.Err(); err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}

	v = schema.LookupPath(cue.ParsePath("#Seed")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}

	js, err := v.MarshalJSON()
	if err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}
	var s Seed
	if err := json.Unmarshal(js, &s); err != nil {
		return nil, &ValidationError{Source: source, Err: err}
	}
	return &s, nil
}

// decodeYAML decodes a YAML document into generic values. Unquoted
// timestamps become RFC 3339 strings; yaml.v3 would otherwise keep them in
// their source form, and plain dates would fail the schema.
func decodeYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return map[string]any{}, nil
	}
	normalizeTimestamps(&root)

	var raw any
	if err := root.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func normalizeTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		var t time.Time
		if err := n.Decode(&t); err == nil {
			n.Value = t.UTC().Format(time.RFC3339Nano)
			n.Tag = "!!str"
		}
		return
	}
	for _, c := range n.Content {
		normalizeTimestamps(c)
	}
}
