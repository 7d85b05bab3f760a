package manifest

import (
	"cuelang.org/go/cue/token"

	"github.com/roach88/lineage/internal/ir"
)

// ClassSpec declares a root class.
type ClassSpec struct {
	Name    string
	Methods map[string]ir.Value
}

// ExtensionSpec declares one extension. ID is the manifest key; Name and
// Version are the engine identity and may be empty.
type ExtensionSpec struct {
	ID           string
	Name         string
	Version      string
	Extends      []string
	Dependencies map[string]string
	Methods      map[string]ir.Value

	// Mutate makes the transformation define methods on the input class
	// instead of creating a subclass.
	Mutate bool

	Pos token.Pos
}

// Manifest is everything declared in one directory of .cue files.
// Classes and Extensions are sorted by name and ID.
type Manifest struct {
	Dir        string
	FileCount  int
	Classes    []ClassSpec
	Extensions []ExtensionSpec
}

// Extension returns the declared extension with the given id.
func (m *Manifest) Extension(id string) (ExtensionSpec, bool) {
	for _, spec := range m.Extensions {
		if spec.ID == id {
			return spec, true
		}
	}
	return ExtensionSpec{}, false
}

// Class returns the class spec with the given name.
func (m *Manifest) Class(name string) (ClassSpec, bool) {
	for _, spec := range m.Classes {
		if spec.Name == name {
			return spec, true
		}
	}
	return ClassSpec{}, false
}

// Object returns the canonical form of the manifest, used for its digest.
// Source positions and the directory are not part of it.
func (m *Manifest) Object() ir.Object {
	classes := ir.Object{}
	for _, c := range m.Classes {
		classes[c.Name] = ir.Object{"methods": ir.Object(c.Methods)}
	}

	extensions := ir.Object{}
	for _, e := range m.Extensions {
		obj := ir.Object{
			"extends":      ir.Strings(e.Extends),
			"dependencies": ir.StringMap(e.Dependencies),
			"methods":      ir.Object(e.Methods),
			"mutate":       ir.Bool(e.Mutate),
		}
		if e.Name != "" {
			obj["name"] = ir.String(e.Name)
			obj["version"] = ir.String(e.Version)
		}
		extensions[e.ID] = obj
	}

	return ir.Object{
		"class":     classes,
		"extension": extensions,
	}
}

// Digest returns the content digest of the manifest.
func (m *Manifest) Digest() (string, error) {
	return ir.ManifestDigest(m.Object())
}
