package manifest

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/ir"
)

// InitField returns the instance field a manifest extension's constructor
// increments each time an instance is created.
func InitField(id string) string {
	return "init." + id
}

// Set is a compiled manifest: one extension descriptor per manifest id.
//
// Descriptors are built once, so applying the same id twice applies the
// same descriptor and the engine's identity rules hold.
type Set struct {
	manifest   *Manifest
	extensions map[string]*lineage.Extension
	ids        map[*lineage.Extension]string
}

// Build validates m and constructs its extension descriptors, dependencies
// first. Any validation error aborts the build; all of them are returned
// joined.
func Build(m *Manifest) (*Set, error) {
	if verrs := Validate(m); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, multierr.Combine(errs...)
	}

	s := &Set{
		manifest:   m,
		extensions: make(map[string]*lineage.Extension, len(m.Extensions)),
		ids:        make(map[*lineage.Extension]string, len(m.Extensions)),
	}
	for _, spec := range m.Extensions {
		if _, err := s.build(spec.ID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// build constructs id after everything it extends. The graph is known to be
// acyclic.
func (s *Set) build(id string) (*lineage.Extension, error) {
	if ext, ok := s.extensions[id]; ok {
		return ext, nil
	}

	spec, _ := s.manifest.Extension(id)

	extends := make([]*lineage.Extension, 0, len(spec.Extends))
	for _, depID := range spec.Extends {
		dep, err := s.build(depID)
		if err != nil {
			return nil, err
		}
		extends = append(extends, dep)
	}

	ext, err := lineage.New(lineage.Config{
		Name:         spec.Name,
		Version:      spec.Version,
		Extends:      extends,
		Extend:       transform(spec),
		Dependencies: spec.Dependencies,
	})
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", id, err)
	}

	s.extensions[id] = ext
	s.ids[ext] = id
	return ext, nil
}

// transform returns the transformation for spec. Subclassing extensions
// create "<Base>+<id>" with the declared methods and an init counter;
// mutating ones define the methods on the input class and return it.
func transform(spec ExtensionSpec) lineage.ExtendFunc {
	return func(base *lineage.Class) *lineage.Class {
		if spec.Mutate {
			for _, name := range sortedMethodNames(spec.Methods) {
				base.Define(name, constant(spec.Methods[name]))
			}
			return base
		}

		field := InitField(spec.ID)
		opts := []lineage.ClassOption{
			lineage.WithConstructor(func(inst *lineage.Instance) {
				inst.Add(field, 1)
			}),
		}
		for _, name := range sortedMethodNames(spec.Methods) {
			opts = append(opts, lineage.WithMethod(name, constant(spec.Methods[name])))
		}
		return base.Subclass(base.Name()+"+"+spec.ID, opts...)
	}
}

// NewClass creates the named manifest class as a root of h.
func (s *Set) NewClass(h *lineage.Hierarchy, name string) (*lineage.Class, error) {
	spec, ok := s.manifest.Class(name)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", name)
	}

	var opts []lineage.ClassOption
	for _, m := range sortedMethodNames(spec.Methods) {
		opts = append(opts, lineage.WithMethod(m, constant(spec.Methods[m])))
	}
	return h.Root(spec.Name, opts...), nil
}

// Extension returns the descriptor built for id.
func (s *Set) Extension(id string) (*lineage.Extension, bool) {
	ext, ok := s.extensions[id]
	return ext, ok
}

// IDs returns every extension id, sorted.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.extensions))
	for id := range s.extensions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ID returns the manifest id of ext, or "" if ext was not built by s.
func (s *Set) ID(ext *lineage.Extension) string {
	return s.ids[ext]
}

// Label names ext by its manifest id, falling back to ext.Label for
// descriptors from elsewhere. It is stable across processes, unlike the
// anonymous labels assigned at construction.
func (s *Set) Label(ext *lineage.Extension) string {
	if id, ok := s.ids[ext]; ok {
		return id
	}
	return ext.Label()
}

// Manifest returns the manifest the set was built from.
func (s *Set) Manifest() *Manifest {
	return s.manifest
}

// constant returns a method that ignores its arguments and returns v as a
// plain Go value.
func constant(v ir.Value) lineage.Method {
	var out any
	switch val := v.(type) {
	case ir.String:
		out = string(val)
	case ir.Int:
		out = int64(val)
	case ir.Bool:
		out = bool(val)
	default:
		out = val
	}
	return func(*lineage.Instance, ...any) (any, error) {
		return out, nil
	}
}

func sortedMethodNames(methods map[string]ir.Value) []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
