package lineage

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while applying an extension.
//
// Runtime errors include:
//   - Contract violation: the transformation returned neither the input class
//     nor a direct subclass of it
//   - Version mismatch: a same-named extension with a different exact
//     version is already applied and no range was given
//   - Range unsatisfied: a same-named extension is already applied and its
//     version falls outside the range given with WithVersion
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Class is the class being extended.
	Class string

	// Extension is the label of the extension being applied.
	Extension string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeContractViolation indicates a transformation broke the
	// direct-subclass contract.
	ErrCodeContractViolation RuntimeErrorCode = "CONTRACT_VIOLATION"

	// ErrCodeVersionMismatch indicates two exact versions of a named
	// extension differ.
	ErrCodeVersionMismatch RuntimeErrorCode = "VERSION_MISMATCH"

	// ErrCodeRangeUnsatisfied indicates the applied version of a named
	// extension falls outside the requested range.
	ErrCodeRangeUnsatisfied RuntimeErrorCode = "VERSION_RANGE_UNSATISFIED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Class != "" && e.Extension != "" {
		return fmt.Sprintf("%s: %s (class=%s, extension=%s)", e.Code, e.Message, e.Class, e.Extension)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractError returns true if err is a contract violation.
func IsContractError(err error) bool {
	return hasCode(err, ErrCodeContractViolation)
}

// IsVersionMismatch returns true if err reports differing exact versions.
func IsVersionMismatch(err error) bool {
	return hasCode(err, ErrCodeVersionMismatch)
}

// IsRangeUnsatisfied returns true if err reports a version outside the
// requested range.
func IsRangeUnsatisfied(err error) bool {
	return hasCode(err, ErrCodeRangeUnsatisfied)
}

// IsVersionConflict returns true for either kind of version conflict.
func IsVersionConflict(err error) bool {
	return IsVersionMismatch(err) || IsRangeUnsatisfied(err)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewContractError creates a RuntimeError for a transformation that did not
// return a direct subclass.
func NewContractError(class *Class, ext *Extension, got *Class) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeContractViolation,
		Message:   "extension did not return a subclass of original class",
		Class:     class.String(),
		Extension: ext.Label(),
		Details: map[string]string{
			"returned": got.String(),
		},
	}
}

// NewVersionMismatchError creates a RuntimeError for conflicting exact
// versions of a named extension.
func NewVersionMismatchError(class *Class, ext *Extension, existing string) *RuntimeError {
	return &RuntimeError{
		Code: ErrCodeVersionMismatch,
		Message: fmt.Sprintf(
			"class is already extended with version %s of extension '%s', which differs from version %s now being applied",
			existing, ext.name, ext.version,
		),
		Class:     class.String(),
		Extension: ext.Label(),
		Details: map[string]string{
			"name":      ext.name,
			"existing":  existing,
			"requested": ext.version,
		},
	}
}

// NewRangeUnsatisfiedError creates a RuntimeError for an applied version
// outside the caller's range.
func NewRangeUnsatisfiedError(class *Class, ext *Extension, existing, versionRange string) *RuntimeError {
	return &RuntimeError{
		Code: ErrCodeRangeUnsatisfied,
		Message: fmt.Sprintf(
			"class is already extended with version %s of extension '%s', which does not satisfy specified version range '%s'",
			existing, ext.name, versionRange,
		),
		Class:     class.String(),
		Extension: ext.Label(),
		Details: map[string]string{
			"name":     ext.name,
			"existing": existing,
			"range":    versionRange,
		},
	}
}
