package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/journal"
	"github.com/roach88/lineage/internal/manifest"
	"github.com/roach88/lineage/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Class      string
	Extensions []string
	Ranges     map[string]string // extension id or name -> version range
	Database   string
}

// ApplyStep describes one requested extension application.
type ApplyStep struct {
	Extension    string `json:"extension"`
	VersionRange string `json:"version_range,omitempty"`
	Class        string `json:"class"`
	Result       string `json:"result"`
}

// ApplyResult holds the apply command output.
type ApplyResult struct {
	RunToken   string      `json:"run_token"`
	Class      string      `json:"class"`
	Steps      []ApplyStep `json:"steps"`
	Result     string      `json:"result"`
	Extensions []string    `json:"extensions"`
	Events     []ir.Event  `json:"events"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <manifest-dir>",
		Short: "Apply manifest extensions to a class",
		Long: `Build the manifest's extensions, create the named class and apply the
given extensions to it in order, each to the result of the previous one.

Every engine outcome is journaled. With --db the journal is written to a
SQLite database and can be inspected later with 'lineage trace'.

Examples:
  lineage apply ./manifest --class Widget --ext logging_v1 --ext audit
  lineage apply ./manifest --class Widget --ext logging_v2 --range logging='^2.0.0'
  lineage apply ./manifest --class Widget --ext shared --db ./lineage.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Class, "class", "", "manifest class to extend (required)")
	_ = cmd.MarkFlagRequired("class")
	cmd.Flags().StringArrayVar(&opts.Extensions, "ext", nil, "extension id to apply, repeatable (required)")
	_ = cmd.MarkFlagRequired("ext")
	cmd.Flags().StringToStringVar(&opts.Ranges, "range", nil, "version range for an extension id or name (name=range)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to journal into (default: in memory)")

	return cmd
}

func runApply(opts *ApplyOptions, dir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	m, loadErrs := manifest.Load(dir, manifest.LoadModeFailFast)
	if len(loadErrs) > 0 {
		return outputLoadError(formatter, loadErrs[0])
	}
	if verrs := manifest.Validate(m); len(verrs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Classes:    len(m.Classes),
			Extensions: len(m.Extensions),
			Errors:     verrs,
		})
	}
	set, err := manifest.Build(m)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build manifest", err)
	}
	digest, err := m.Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest manifest", err)
	}

	exts := make([]*lineage.Extension, len(opts.Extensions))
	for i, id := range opts.Extensions {
		ext, ok := set.Extension(id)
		if !ok {
			msg := fmt.Sprintf("unknown extension %q", id)
			_ = formatter.Error(manifest.ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		exts[i] = ext
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	run := journal.NewRun(journal.UUIDv7Generator{}, m.Dir, digest)
	rec, err := journal.NewRecorder(ctx, st, run,
		journal.WithLabeler(set.Label),
		journal.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start run", err)
	}
	formatter.VerboseLog("Run %s", run.Token)

	h := lineage.NewHierarchy(lineage.WithLogger(logger), lineage.WithObserver(rec))
	cls, err := set.NewClass(h, opts.Class)
	if err != nil {
		_ = formatter.Error(manifest.ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown class", err)
	}

	result := ApplyResult{RunToken: run.Token, Class: cls.String(), Steps: []ApplyStep{}}
	current := cls
	for i, ext := range exts {
		id := opts.Extensions[i]
		versionRange := rangeFor(opts.Ranges, id, ext)

		var extendOpts []lineage.ExtendOption
		if versionRange != "" {
			extendOpts = append(extendOpts, lineage.WithVersion(versionRange))
		}

		next, err := current.Extend(ext, extendOpts...)
		if err != nil {
			code := errorCode(err)
			_ = formatter.Error(code, err.Error(), map[string]any{
				"run_token": run.Token,
				"extension": id,
				"class":     current.String(),
			})
			return WrapExitError(ExitFailure, fmt.Sprintf("apply %s", id), err)
		}

		result.Steps = append(result.Steps, ApplyStep{
			Extension:    id,
			VersionRange: versionRange,
			Class:        current.String(),
			Result:       next.String(),
		})
		current = next
	}

	if err := rec.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to journal run", err)
	}

	result.Result = current.String()
	result.Extensions = make([]string, 0)
	for _, ext := range current.Extensions() {
		result.Extensions = append(result.Extensions, set.Label(ext))
	}
	result.Events = rec.Events()

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputApplyText(formatter, result)
}

// rangeFor looks up the version range for an extension by manifest id first,
// then by extension name.
func rangeFor(ranges map[string]string, id string, ext *lineage.Extension) string {
	if r, ok := ranges[id]; ok {
		return r
	}
	if ext.IsNamed() {
		return ranges[ext.Name()]
	}
	return ""
}

// errorCode returns the classified code of an engine error.
func errorCode(err error) string {
	var runtimeErr *lineage.RuntimeError
	if errors.As(err, &runtimeErr) {
		return string(runtimeErr.Code)
	}
	var validationErr lineage.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code
	}
	return manifest.ErrCodeGeneric
}

func outputApplyText(formatter *OutputFormatter, result ApplyResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Run: %s\n", result.RunToken)
	for _, step := range result.Steps {
		ext := step.Extension
		if step.VersionRange != "" {
			ext += " (" + step.VersionRange + ")"
		}
		marker := "+"
		if step.Result == step.Class {
			marker = "="
		}
		fmt.Fprintf(w, "  %s %s on %s -> %s\n", marker, ext, step.Class, step.Result)
	}
	fmt.Fprintf(w, "Result: %s\n", result.Result)
	fmt.Fprintf(w, "Extensions: [%s]\n", strings.Join(result.Extensions, ", "))

	if formatter.Verbose {
		fmt.Fprintln(w, "Events:")
		for _, ev := range result.Events {
			fmt.Fprintf(w, "  [%d] %s %s on %s\n", ev.Seq, ev.Outcome, ev.Extension, ev.Class)
		}
	}
	return nil
}
