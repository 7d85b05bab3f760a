package lineage

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// ExtendFunc is the transformation an extension performs. It must return
// base itself or a direct subclass of base.
type ExtendFunc func(base *Class) *Class

// Config describes an extension. Only Extend is mandatory; Version is
// mandatory when Name is set.
type Config struct {
	// Name identifies the extension for version deduplication. Anonymous
	// extensions never collide by name.
	Name string

	// Version is an exact semantic version, e.g. "1.2.0".
	Version string

	// Extends lists extensions applied, in order, before this one.
	Extends []*Extension

	// Extend performs the transformation.
	Extend ExtendFunc

	// Dependencies maps a dependency's name to the version range this
	// extension accepts for it.
	Dependencies map[string]string
}

// Extension is an immutable, validated extension descriptor. Extensions are
// compared by identity.
type Extension struct {
	name         string
	version      string
	extend       ExtendFunc
	extends      []*Extension
	dependencies map[string]string
	ordinal      int64
}

var extensionSeq atomic.Int64

// New validates cfg and returns the extension it describes. All violations
// are reported together.
func New(cfg Config) (*Extension, error) {
	ext := &Extension{
		name:         cfg.Name,
		version:      cfg.Version,
		extend:       cfg.Extend,
		extends:      make([]*Extension, len(cfg.Extends)),
		dependencies: make(map[string]string, len(cfg.Dependencies)),
	}
	copy(ext.extends, cfg.Extends)
	for name, versionRange := range cfg.Dependencies {
		ext.dependencies[name] = versionRange
	}

	if err := combine(validateExtension(ext, "")); err != nil {
		return nil, err
	}

	ext.ordinal = extensionSeq.Add(1)
	return ext, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(cfg Config) *Extension {
	ext, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return ext
}

// Option configures an extension built with Named or Anonymous.
type Option func(*Config)

// WithExtends appends extensions to apply before this one.
func WithExtends(exts ...*Extension) Option {
	return func(c *Config) {
		c.Extends = append(c.Extends, exts...)
	}
}

// WithDependency constrains the accepted version of the named dependency.
func WithDependency(name, versionRange string) Option {
	return func(c *Config) {
		if c.Dependencies == nil {
			c.Dependencies = make(map[string]string)
		}
		c.Dependencies[name] = versionRange
	}
}

// Named creates a named, versioned extension.
func Named(name, version string, fn ExtendFunc, opts ...Option) (*Extension, error) {
	cfg := Config{Name: name, Version: version, Extend: fn}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// Anonymous creates an extension without a name.
func Anonymous(fn ExtendFunc, opts ...Option) (*Extension, error) {
	cfg := Config{Extend: fn}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// Name returns the extension name, empty for anonymous extensions.
func (e *Extension) Name() string { return e.name }

// Version returns the declared version, empty when none was given.
func (e *Extension) Version() string { return e.version }

// IsNamed reports whether the extension has a name.
func (e *Extension) IsNamed() bool { return e.name != "" }

// Extends returns a copy of the dependency list.
func (e *Extension) Extends() []*Extension {
	out := make([]*Extension, len(e.extends))
	copy(out, e.extends)
	return out
}

// Dependencies returns a copy of the dependency version ranges.
func (e *Extension) Dependencies() map[string]string {
	out := make(map[string]string, len(e.dependencies))
	for name, versionRange := range e.dependencies {
		out[name] = versionRange
	}
	return out
}

// DependencyNames returns the names in Dependencies, sorted.
func (e *Extension) DependencyNames() []string {
	names := make([]string, 0, len(e.dependencies))
	for name := range e.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Label identifies the extension in logs and journals: "name@version" for
// named extensions, "anonymous#N" otherwise.
func (e *Extension) Label() string {
	if e == nil {
		return "<nil>"
	}
	if e.name != "" {
		return e.name + "@" + e.version
	}
	return fmt.Sprintf("anonymous#%d", e.ordinal)
}

// String implements fmt.Stringer.
func (e *Extension) String() string {
	return e.Label()
}
