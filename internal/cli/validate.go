package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/manifest"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Classes    int                        `json:"classes"`
	Extensions int                        `json:"extensions"`
	Errors     []manifest.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate an extension manifest",
		Long: `Validate the CUE extension manifest in a directory without applying it.

Reports compile errors for malformed entries, unknown extends references,
cycles in the extends graph, invalid versions and ranges, and dependencies
that name no extended extension.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, loadErrs := manifest.Load(dir, manifest.LoadModeCollectAll)
	if m == nil {
		return outputLoadError(formatter, loadErrs[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", m.FileCount, dir)

	var validationErrors []manifest.ValidationError
	for _, err := range loadErrs {
		validationErrors = append(validationErrors, loadValidationError(err))
	}
	validationErrors = append(validationErrors, manifest.Validate(m)...)

	result := ValidationResult{
		Valid:      len(validationErrors) == 0,
		Classes:    len(m.Classes),
		Extensions: len(m.Extensions),
		Errors:     validationErrors,
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Manifest valid: %d class(es), %d extension(s)\n", result.Classes, result.Extensions)
	return nil
}

// loadValidationError reports a per-entry load failure alongside the
// manifest-level validation errors.
func loadValidationError(err error) manifest.ValidationError {
	var loadErr *manifest.LoadError
	if errors.As(err, &loadErr) {
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return manifest.ValidationError{Field: "load", Message: loadErr.Message, Code: loadErr.Code, Line: line}
	}
	return manifest.ValidationError{Field: "load", Message: err.Error(), Code: manifest.ErrCodeGeneric}
}

// outputLoadError reports a manifest that could not be read at all. These are
// command errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code := manifest.ErrCodeGeneric
	message := err.Error()
	var loadErr *manifest.LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
		message = loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation error. Validation failures
// exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
