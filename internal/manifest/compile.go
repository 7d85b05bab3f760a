package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lineage/internal/ir"
)

// CompileClass parses a CUE value into a ClassSpec. The value should be the
// class struct itself, e.g. the value at path class.Widget.
func CompileClass(v cue.Value) (*ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ClassSpec{Name: selectorName(v)}

	methods, err := parseMethods(v)
	if err != nil {
		return nil, err
	}
	spec.Methods = methods

	return spec, nil
}

// CompileExtension parses a CUE value into an ExtensionSpec. The value should
// be the extension struct itself, e.g. the value at path extension.logging.
//
// Only CUE-level shape is checked here. Cross-references and version syntax
// are checked by Validate.
func CompileExtension(v cue.Value) (*ExtensionSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ExtensionSpec{
		ID:           selectorName(v),
		Extends:      []string{},
		Dependencies: make(map[string]string),
		Pos:          v.Pos(),
	}

	var err error
	if spec.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if spec.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}

	extendsVal := v.LookupPath(cue.ParsePath("extends"))
	if extendsVal.Exists() {
		iter, err := extendsVal.List()
		if err != nil {
			return nil, &CompileError{
				Field:   "extends",
				Message: "extends must be a list of extension ids",
				Pos:     extendsVal.Pos(),
			}
		}
		for iter.Next() {
			id, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Extends = append(spec.Extends, id)
		}
	}

	depsVal := v.LookupPath(cue.ParsePath("dependencies"))
	if depsVal.Exists() {
		iter, err := depsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			versionRange, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   "dependencies." + iter.Label(),
					Message: "dependency range must be a string",
					Pos:     iter.Value().Pos(),
				}
			}
			spec.Dependencies[iter.Label()] = versionRange
		}
	}

	if spec.Methods, err = parseMethods(v); err != nil {
		return nil, err
	}

	mutateVal := v.LookupPath(cue.ParsePath("mutate"))
	if mutateVal.Exists() {
		mutate, err := mutateVal.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "mutate",
				Message: "mutate must be a bool",
				Pos:     mutateVal.Pos(),
			}
		}
		spec.Mutate = mutate
	}

	return spec, nil
}

// parseMethods reads the optional methods struct. Each method is a constant.
func parseMethods(v cue.Value) (map[string]ir.Value, error) {
	methods := make(map[string]ir.Value)

	methodsVal := v.LookupPath(cue.ParsePath("methods"))
	if !methodsVal.Exists() {
		return methods, nil
	}

	iter, err := methodsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		constant, err := extractConstant(iter.Value())
		if err != nil {
			return nil, err
		}
		methods[name] = constant
	}
	return methods, nil
}

// extractConstant converts a concrete CUE scalar into an ir.Value.
// Floats are forbidden.
func extractConstant(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "methods",
			Message: "float constants are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "methods",
			Message: fmt.Sprintf("method must be a concrete string, int or bool, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{
			Field:   field,
			Message: field + " must be a string",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

// selectorName returns the last path selector of v, i.e. its struct label.
func selectorName(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
