package lineage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/multierr"
)

// Validation error codes (E101-E109)
const (
	ErrCodeNotAClass       = "E101" // target is not a class handle
	ErrCodeNotAnExtension  = "E102" // extension is nil
	ErrCodeInvalidName     = "E103" // name must be non-empty
	ErrCodeInvalidVersion  = "E104" // version must be an exact semver
	ErrCodeMissingExtend   = "E105" // extend function missing
	ErrCodeInvalidRange    = "E106" // dependency range invalid
	ErrCodeInvalidOption   = "E107" // extend option invalid
	ErrCodeDependencyName  = "E108" // dependency name empty
	ErrCodeInvalidInstance = "E109" // instance is nil
)

// ValidationError reports a malformed class, extension or option.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ValidationErrors returns every ValidationError combined in err.
func ValidationErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range multierr.Errors(err) {
		var ve ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	return out
}

// ValidVersion reports whether v is an exact semantic version.
func ValidVersion(v string) bool {
	_, err := parseVersion(v)
	return err == nil
}

// ValidRange reports whether r is a semantic version range.
func ValidRange(r string) bool {
	_, err := parseRange(r)
	return err == nil
}

// parseVersion accepts "1.2.3" and "v1.2.3".
func parseVersion(v string) (*semver.Version, error) {
	if strings.TrimSpace(v) == "" {
		return nil, errors.New("empty version")
	}
	return semver.StrictNewVersion(strings.TrimPrefix(v, "v"))
}

func parseRange(r string) (*semver.Constraints, error) {
	if strings.TrimSpace(r) == "" {
		return nil, errors.New("empty range")
	}
	return semver.NewConstraint(r)
}

// satisfies reports whether version falls in versionRange. Both must already
// be valid.
func satisfies(version, versionRange string) bool {
	v, err := parseVersion(version)
	if err != nil {
		return false
	}
	c, err := parseRange(versionRange)
	if err != nil {
		return false
	}
	return c.Check(v)
}

func combine(errs []ValidationError) error {
	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return err
}

func fieldPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func validateClass(c *Class) error {
	if c == nil || c.hierarchy == nil || c.proto == nil {
		return ValidationError{
			Message: "class is not a class handle",
			Code:    ErrCodeNotAClass,
		}
	}
	return nil
}

// validateExtensionArg validates an extension passed to Extend or a query.
func validateExtensionArg(ext *Extension) error {
	return combine(validateExtension(ext, "extension"))
}

// validateExtension validates ext and, recursively, its Extends list.
// Returns all errors found (does not fail-fast).
func validateExtension(ext *Extension, prefix string) []ValidationError {
	if ext == nil {
		field := prefix
		if field == "" {
			field = "extension"
		}
		return []ValidationError{{
			Field:   field,
			Message: "must be an extension",
			Code:    ErrCodeNotAnExtension,
		}}
	}

	var errs []ValidationError

	if ext.name != "" {
		if strings.TrimSpace(ext.name) == "" {
			errs = append(errs, ValidationError{
				Field:   fieldPath(prefix, "name"),
				Message: "name must be a non-empty string",
				Code:    ErrCodeInvalidName,
			})
		}
		if _, err := parseVersion(ext.version); err != nil {
			errs = append(errs, ValidationError{
				Field:   fieldPath(prefix, "version"),
				Message: fmt.Sprintf("version must be a valid semver version string, got %q", ext.version),
				Code:    ErrCodeInvalidVersion,
			})
		}
	}

	if ext.extend == nil {
		errs = append(errs, ValidationError{
			Field:   fieldPath(prefix, "extend"),
			Message: "extend must be a function",
			Code:    ErrCodeMissingExtend,
		})
	}

	for i, dep := range ext.extends {
		errs = append(errs, validateExtension(dep, fieldPath(prefix, fmt.Sprintf("extends[%d]", i)))...)
	}

	names := make([]string, 0, len(ext.dependencies))
	for name := range ext.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   fieldPath(prefix, "dependencies"),
				Message: "dependency name must be a non-empty string",
				Code:    ErrCodeDependencyName,
			})
			continue
		}
		versionRange := ext.dependencies[name]
		if _, err := parseRange(versionRange); err != nil {
			errs = append(errs, ValidationError{
				Field:   fieldPath(prefix, "dependencies."+name),
				Message: fmt.Sprintf("version must be a valid semver range version string, got %q", versionRange),
				Code:    ErrCodeInvalidRange,
			})
		}
	}

	return errs
}
