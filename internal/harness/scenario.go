package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines an extension scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the manifest directory. LoadScenario resolves it relative
	// to the scenario file.
	Manifest string `yaml:"manifest"`

	// Class is the manifest class the scenario starts from, bound to "base".
	Class string `yaml:"class"`

	// RunToken fixes the journal run token. Defaults to
	// testutil.DefaultRunToken.
	RunToken string `yaml:"run_token,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step applies one extension, or creates one plain subclass.
type Step struct {
	// Extend is the manifest id of the extension to apply.
	Extend string `yaml:"extend,omitempty"`

	// Subclass creates a plain subclass with this name instead of extending.
	Subclass string `yaml:"subclass,omitempty"`

	// As binds the resulting class to a name.
	As string `yaml:"as,omitempty"`

	// From names the input class. Defaults to the previous result.
	From string `yaml:"from,omitempty"`

	// Version is passed to Extend as the accepted version range.
	Version string `yaml:"version,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind; see ErrorKind.
	Error string `yaml:"error,omitempty"`

	// SameAs names a bound class the result must be identical to.
	SameAs string `yaml:"same_as,omitempty"`
}

// Assertion checks the state after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	// Class names the bound class to check. Defaults to the last result.
	Class string `yaml:"class,omitempty"`

	// Extension is a manifest id (extended_with, init_count).
	Extension string `yaml:"extension,omitempty"`

	// Extensions are manifest ids in application order (extensions).
	Extensions []string `yaml:"extensions,omitempty"`

	// Classes are bound names that must all be one class (same_class).
	Classes []string `yaml:"classes,omitempty"`

	// Expect is the expected boolean (directly_extended, extended_with).
	Expect bool `yaml:"expect,omitempty"`

	// Count is the expected count (init_count, outcome_count).
	Count int `yaml:"count,omitempty"`

	// Method and Result describe a call assertion.
	Method string `yaml:"method,omitempty"`
	Result any    `yaml:"result,omitempty"`

	// Outcome is the journal outcome to count (outcome_count).
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertExtensions       = "extensions"
	AssertDirectlyExtended = "directly_extended"
	AssertExtendedWith     = "extended_with"
	AssertSameClass        = "same_class"
	AssertInitCount        = "init_count"
	AssertCall             = "call"
	AssertOutcomeCount     = "outcome_count"
)

// Error kinds accepted in expect.error.
const (
	KindContract         = "contract"
	KindVersionMismatch  = "version_mismatch"
	KindRangeUnsatisfied = "range_unsatisfied"
	KindValidation       = "validation"
)

// LoadScenario reads and parses a scenario YAML file. A relative manifest
// path is resolved against the scenario file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Manifest != "" && !filepath.IsAbs(scenario.Manifest) {
		scenario.Manifest = filepath.Join(filepath.Dir(path), scenario.Manifest)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without resolving paths.
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

// FindScenarios returns the .yaml and .yml files in dir, sorted. If path is
// a file it is returned as is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if s.Class == "" {
		return fmt.Errorf("class is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if (step.Extend == "") == (step.Subclass == "") {
			return fmt.Errorf("steps[%d]: exactly one of extend or subclass is required", i)
		}
		if step.Subclass != "" && (step.Version != "" || step.Expect != nil) {
			return fmt.Errorf("steps[%d]: version and expect only apply to extend steps", i)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if !knownKind(step.Expect.Error) {
				return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
			}
			if step.As != "" || step.Expect.SameAs != "" {
				return fmt.Errorf("steps[%d]: a failing step has no result to bind or compare", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func knownKind(kind string) bool {
	switch kind {
	case KindContract, KindVersionMismatch, KindRangeUnsatisfied, KindValidation:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertExtensions, AssertDirectlyExtended:
	case AssertExtendedWith:
		if a.Extension == "" {
			return fmt.Errorf("assertions[%d]: extension is required for extended_with", index)
		}
	case AssertSameClass:
		if len(a.Classes) < 2 {
			return fmt.Errorf("assertions[%d]: same_class needs at least two classes", index)
		}
	case AssertInitCount:
		if a.Extension == "" {
			return fmt.Errorf("assertions[%d]: extension is required for init_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for init_count", index)
		}
	case AssertCall:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for call", index)
		}
		if a.Result == nil {
			return fmt.Errorf("assertions[%d]: result is required for call", index)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
