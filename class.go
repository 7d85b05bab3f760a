package lineage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMethodNotFound is returned when a method cannot be resolved on an
// instance's prototype chain.
var ErrMethodNotFound = errors.New("method not found")

// Method is behavior attached to a class prototype.
type Method func(self *Instance, args ...any) (any, error)

// Class is a handle to a class owned by a Hierarchy.
//
// Classes are created only by Hierarchy.Root and Class.Subclass. Each class
// has a static parent link and an instance prototype whose parent is the
// parent class's prototype.
type Class struct {
	id        ClassID
	name      string
	parent    *Class
	proto     *prototype
	hierarchy *Hierarchy
}

// prototype holds instance-level behavior. Methods are guarded by the owning
// hierarchy's mutex because mutation-style extensions may define them after
// creation.
type prototype struct {
	parent  *prototype
	methods map[string]Method
	ctor    func(*Instance)
}

type classConfig struct {
	methods map[string]Method
	ctor    func(*Instance)
}

// ClassOption configures a class at creation time.
type ClassOption func(*classConfig)

// WithConstructor sets a constructor run by New. Constructors run from the
// root of the lineage down to the instantiated class.
func WithConstructor(ctor func(*Instance)) ClassOption {
	return func(c *classConfig) {
		c.ctor = ctor
	}
}

// WithMethod defines a method on the class prototype.
func WithMethod(name string, m Method) ClassOption {
	return func(c *classConfig) {
		c.methods[name] = m
	}
}

// ID returns the class identifier.
func (c *Class) ID() ClassID { return c.id }

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Parent returns the direct parent class, or nil for a root class.
func (c *Class) Parent() *Class { return c.parent }

// Hierarchy returns the owning hierarchy.
func (c *Class) Hierarchy() *Hierarchy { return c.hierarchy }

// String implements fmt.Stringer.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", c.name, c.id)
}

// Subclass creates a direct subclass of c.
func (c *Class) Subclass(name string, opts ...ClassOption) *Class {
	return c.hierarchy.newClass(name, c, opts)
}

// Define adds or replaces a method on the class prototype in place.
func (c *Class) Define(name string, m Method) {
	c.hierarchy.mu.Lock()
	defer c.hierarchy.mu.Unlock()
	c.proto.methods[name] = m
}

// IsDirectSubclassOf reports whether base is exactly one step above c in both
// the static and the instance chains.
func (c *Class) IsDirectSubclassOf(base *Class) bool {
	if c == nil || base == nil || c.hierarchy != base.hierarchy {
		return false
	}
	return c.parent == base && c.proto.parent == base.proto
}

// IsSubclassOf reports whether base appears anywhere above c.
func (c *Class) IsSubclassOf(base *Class) bool {
	if c == nil || base == nil {
		return false
	}
	for cur := c.parent; cur != nil; cur = cur.parent {
		if cur == base {
			return true
		}
	}
	return false
}

// Lineage returns the classes from the root down to c.
func (c *Class) Lineage() []*Class {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Methods returns the sorted names of every method resolvable on instances
// of c.
func (c *Class) Methods() []string {
	c.hierarchy.mu.Lock()
	seen := make(map[string]bool)
	for p := c.proto; p != nil; p = p.parent {
		for name := range p.methods {
			seen[name] = true
		}
	}
	c.hierarchy.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an instance of c, running constructors root first.
func (c *Class) New() *Instance {
	inst := &Instance{
		class:  c,
		fields: make(map[string]any),
	}

	var ctors []func(*Instance)
	for p := c.proto; p != nil; p = p.parent {
		if p.ctor != nil {
			ctors = append(ctors, p.ctor)
		}
	}
	for i := len(ctors) - 1; i >= 0; i-- {
		ctors[i](inst)
	}

	return inst
}

// resolve finds a method starting at proto. Caller must not hold the
// hierarchy mutex.
func (c *Class) resolve(proto *prototype, name string) (Method, bool) {
	c.hierarchy.mu.Lock()
	defer c.hierarchy.mu.Unlock()
	for p := proto; p != nil; p = p.parent {
		if m, ok := p.methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Instance is an object created from a Class.
type Instance struct {
	class  *Class
	mu     sync.Mutex
	fields map[string]any
}

// Class returns the runtime class of the instance.
func (i *Instance) Class() *Class { return i.class }

// Get returns a field value.
func (i *Instance) Get(key string) (any, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.fields[key]
	return v, ok
}

// Set stores a field value.
func (i *Instance) Set(key string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fields[key] = value
}

// Add increments an integer field by delta and returns the new value.
// Missing or non-integer fields count as zero.
func (i *Instance) Add(key string, delta int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, _ := i.fields[key].(int)
	n += delta
	i.fields[key] = n
	return n
}

// Call invokes a method resolved on the instance's prototype chain.
func (i *Instance) Call(name string, args ...any) (any, error) {
	m, ok := i.class.resolve(i.class.proto, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrMethodNotFound, name, i.class)
	}
	return m(i, args...)
}

// Super invokes a method resolved starting at the parent of from. from is
// normally the class whose method is calling Super.
func (i *Instance) Super(from *Class, name string, args ...any) (any, error) {
	if from == nil || from.parent == nil {
		return nil, fmt.Errorf("%w: super.%s has no parent", ErrMethodNotFound, name)
	}
	m, ok := i.class.resolve(from.parent.proto, name)
	if !ok {
		return nil, fmt.Errorf("%w: super.%s above %s", ErrMethodNotFound, name, from)
	}
	return m(i, args...)
}
