package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/lineage"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownExtends    = "E201" // extends names an id not in the manifest
	ErrExtendsCycle      = "E202" // extends graph has a loop
	ErrInvalidVersion    = "E203" // named extension without a valid version
	ErrInvalidRange      = "E204" // dependency range does not parse
	ErrUnknownDependency = "E205" // dependency names no extension in extends
	ErrBlankName         = "E206" // name present but blank
)

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks cross-references and version syntax across the manifest.
// Returns all errors found (does not fail-fast).
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	byID := make(map[string]ExtensionSpec, len(m.Extensions))
	for _, spec := range m.Extensions {
		byID[spec.ID] = spec
	}

	for _, spec := range m.Extensions {
		errs = append(errs, validateExtension(spec, byID)...)
	}

	for _, cycle := range FindCycles(m.Extensions) {
		spec := byID[cycle.Path[0]]
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("extension.%s.extends", spec.ID),
			Message: cycle.Message,
			Code:    ErrExtendsCycle,
			Line:    spec.Pos.Line(),
		})
	}

	return errs
}

func validateExtension(spec ExtensionSpec, byID map[string]ExtensionSpec) []ValidationError {
	var errs []ValidationError
	field := "extension." + spec.ID
	line := spec.Pos.Line()

	if spec.Name != "" || spec.Version != "" {
		switch {
		case spec.Name != "" && strings.TrimSpace(spec.Name) == "":
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "name must be a non-empty string",
				Code:    ErrBlankName,
				Line:    line,
			})
		case spec.Name != "" && !lineage.ValidVersion(spec.Version):
			errs = append(errs, ValidationError{
				Field:   field + ".version",
				Message: fmt.Sprintf("named extension %q needs a valid semver version, got %q", spec.Name, spec.Version),
				Code:    ErrInvalidVersion,
				Line:    line,
			})
		}
	}

	extendedNames := make(map[string]bool)
	for i, id := range spec.Extends {
		dep, ok := byID[id]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.extends[%d]", field, i),
				Message: fmt.Sprintf("unknown extension id %q", id),
				Code:    ErrUnknownExtends,
				Line:    line,
			})
			continue
		}
		if dep.Name != "" {
			extendedNames[dep.Name] = true
		}
	}

	names := make([]string, 0, len(spec.Dependencies))
	for name := range spec.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		versionRange := spec.Dependencies[name]
		if !lineage.ValidRange(versionRange) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.dependencies.%s", field, name),
				Message: fmt.Sprintf("invalid version range %q", versionRange),
				Code:    ErrInvalidRange,
				Line:    line,
			})
		}
		if !extendedNames[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.dependencies.%s", field, name),
				Message: fmt.Sprintf("no extension named %q in extends", name),
				Code:    ErrUnknownDependency,
				Line:    line,
			})
		}
	}

	return errs
}
