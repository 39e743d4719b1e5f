package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a composition scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a CUE file or directory. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Catalog string `yaml:"catalog"`

	// Project is the id of a project declared in the catalog.
	Project string `yaml:"project"`

	// Selections replace the project's selected answers for the listed
	// configuration questions.
	Selections map[string][]string `yaml:"selections,omitempty"`

	// Lines are written to the questionnaire before the first step.
	Lines []SeedLine `yaml:"lines,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final questionnaire.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedLine is a pre-existing questionnaire line. Question names a bank;
// leave it empty and set VariableName for a custom line.
type SeedLine struct {
	ID           string `yaml:"id"`
	Question     string `yaml:"question,omitempty"`
	VariableName string `yaml:"variable_name,omitempty"`
	SortOrder    int    `yaml:"sort_order"`
	Active       *bool  `yaml:"active,omitempty"` // default true
}

// Step is one engine operation.
type Step struct {
	Op string `yaml:"op"`

	// add
	Kind string   `yaml:"kind,omitempty"`
	IDs  []string `yaml:"ids,omitempty"`

	// add, custom; nil appends
	SortOrder *int `yaml:"sort_order,omitempty"`

	// custom
	VariableName string `yaml:"variable_name,omitempty"`
	Text         string `yaml:"text,omitempty"`

	// deactivate, reactivate
	Line string `yaml:"line,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect specifies the expected outcome of a step.
type StepExpect struct {
	// Questions are the resolved (resolve) or applied (apply) question ids,
	// in order.
	Questions []string `yaml:"questions,omitempty"`

	// Code is the expected engine error code (e.g. "VALIDATION").
	Code string `yaml:"code,omitempty"`

	// Error is a substring of the expected error message.
	Error string `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpResolve    = "resolve"
	OpApply      = "apply"
	OpAdd        = "add"
	OpCustom     = "custom"
	OpDeactivate = "deactivate"
	OpReactivate = "reactivate"
)

// Assertion validates the final questionnaire.
type Assertion struct {
	// Type specifies the assertion type:
	// - "lines_order": active lines, rendered "variable@sort_order", equal Lines
	// - "line_count": number of lines (Scope "all" includes inactive) equals Count
	Type string `yaml:"type"`

	Lines []string `yaml:"lines,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Scope string   `yaml:"scope,omitempty"` // "active" (default) or "all"
}

// Assertion type constants.
const (
	AssertLinesOrder = "lines_order"
	AssertLineCount  = "line_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Catalog paths are
// left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
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

// validateScenario checks required fields and per-step arguments.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if s.Project == "" {
		return fmt.Errorf("project is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for i, l := range s.Lines {
		if l.ID == "" {
			return fmt.Errorf("lines[%d]: id is required", i)
		}
		if l.Question == "" && l.VariableName == "" {
			return fmt.Errorf("lines[%d]: question or variable_name is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	switch step.Op {
	case OpResolve, OpApply:
	case OpAdd:
		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required for add", index)
		}
	case OpCustom:
		if step.VariableName == "" && step.Expect == nil {
			return fmt.Errorf("steps[%d]: variable_name is required for custom", index)
		}
	case OpDeactivate, OpReactivate:
		if step.Line == "" {
			return fmt.Errorf("steps[%d]: line is required for %s", index, step.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertLinesOrder:
		if a.Lines == nil {
			return fmt.Errorf("assertions[%d]: lines is required for lines_order", index)
		}
	case AssertLineCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for line_count", index)
		}
		if a.Scope != "" && a.Scope != "active" && a.Scope != "all" {
			return fmt.Errorf("assertions[%d]: scope must be \"active\" or \"all\"", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
