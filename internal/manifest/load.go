package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Loader error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeEmpty       = "E007" // Neither classes nor extensions declared
	ErrCodeCompile     = "E010" // Entry failed to compile
)

// LoadError represents an error that occurred while loading a manifest.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads every .cue file in dir as one CUE instance and compiles its
// class and extension entries.
//
// With LoadModeFailFast, Load returns on the first error. With
// LoadModeCollectAll, every entry is compiled and all errors are returned
// together with whatever did compile.
func Load(dir string, mode LoadMode) (*Manifest, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	m := &Manifest{Dir: dir, FileCount: len(cueFiles)}

	classErrs := eachField(value, "class", func(v cue.Value) error {
		spec, err := CompileClass(v)
		if err != nil {
			return err
		}
		m.Classes = append(m.Classes, *spec)
		return nil
	}, mode)
	errs = append(errs, classErrs...)
	if mode == LoadModeFailFast && len(errs) > 0 {
		return m, errs
	}

	extErrs := eachField(value, "extension", func(v cue.Value) error {
		spec, err := CompileExtension(v)
		if err != nil {
			return err
		}
		m.Extensions = append(m.Extensions, *spec)
		return nil
	}, mode)
	errs = append(errs, extErrs...)
	if mode == LoadModeFailFast && len(errs) > 0 {
		return m, errs
	}

	sort.Slice(m.Classes, func(i, j int) bool { return m.Classes[i].Name < m.Classes[j].Name })
	sort.Slice(m.Extensions, func(i, j int) bool { return m.Extensions[i].ID < m.Extensions[j].ID })

	if len(m.Classes) == 0 && len(m.Extensions) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeEmpty, Message: "no classes or extensions found in manifest"})
	}

	return m, errs
}

// eachField compiles every field under path, converting failures to
// LoadErrors.
func eachField(value cue.Value, path string, compile func(cue.Value) error, mode LoadMode) []error {
	section := value.LookupPath(cue.ParsePath(path))
	if !section.Exists() {
		return nil
	}

	iter, err := section.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", path, err)}}
	}

	var errs []error
	for iter.Next() {
		if err := compile(iter.Value()); err != nil {
			errs = append(errs, convertCompileError(err, path+"."+iter.Label()))
			if mode == LoadModeFailFast {
				return errs
			}
		}
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position
// info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s.%s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
