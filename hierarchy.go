package lineage

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/singleflight"
)

// ClassID identifies a class within its Hierarchy.
type ClassID int64

// Hierarchy owns class handles and the extension bookkeeping attached to them.
//
// Bookkeeping lives in a side-table keyed by ClassID rather than on the
// classes themselves. Every record belongs to exactly one class; inherited
// state is found by walking parent links. Records are released together with
// the Hierarchy.
//
// Thread-safety: the side-table is guarded by a mutex that is never held
// while an extension's transformation runs, so transformations may call back
// into the Hierarchy. Concurrent Extend calls for the same class and
// extension run the transformation once and all receive its result.
type Hierarchy struct {
	mu       sync.Mutex
	nextID   atomic.Int64
	records  map[ClassID]*record
	inflight singleflight.Group
	logger   *slog.Logger
	observer Observer
}

// HierarchyOption configures a Hierarchy at creation time.
type HierarchyOption func(*Hierarchy)

// WithLogger sets the logger used for extension application diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HierarchyOption {
	return func(h *Hierarchy) {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		h.logger = logger
	}
}

// WithObserver registers an Observer notified of every Extend outcome.
func WithObserver(observer Observer) HierarchyOption {
	return func(h *Hierarchy) {
		h.observer = observer
	}
}

// NewHierarchy creates an empty Hierarchy.
func NewHierarchy(opts ...HierarchyOption) *Hierarchy {
	h := &Hierarchy{
		records: make(map[ClassID]*record),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Root creates a class with no parent.
func (h *Hierarchy) Root(name string, opts ...ClassOption) *Class {
	return h.newClass(name, nil, opts)
}

// Len returns the number of classes created in this hierarchy.
func (h *Hierarchy) Len() int {
	return int(h.nextID.Load())
}

func (h *Hierarchy) newClass(name string, parent *Class, opts []ClassOption) *Class {
	cfg := &classConfig{methods: make(map[string]Method)}
	for _, opt := range opts {
		opt(cfg)
	}

	proto := &prototype{
		methods: cfg.methods,
		ctor:    cfg.ctor,
	}
	if parent != nil {
		proto.parent = parent.proto
	}

	return &Class{
		id:        ClassID(h.nextID.Add(1)),
		name:      name,
		parent:    parent,
		proto:     proto,
		hierarchy: h,
	}
}

// record is the bookkeeping owned by one class.
//
// state is nil until the engine stamps the class directly; cache is created
// lazily the first time the class is used as the input of an application.
type record struct {
	state *extensionState
	cache map[*Extension]*Class
}

// extensionState is the accumulated set of extensions in a class's lineage.
// It is never mutated after being stamped onto a class.
type extensionState struct {
	ordered []*Extension
	members mapset.Set[*Extension]
	named   map[string]*Extension
}

// with returns a fresh state equal to s plus ext. s may be nil.
func (s *extensionState) with(ext *Extension) *extensionState {
	next := &extensionState{
		members: mapset.NewThreadUnsafeSet[*Extension](),
		named:   make(map[string]*Extension),
	}

	if s != nil {
		next.ordered = make([]*Extension, len(s.ordered), len(s.ordered)+1)
		copy(next.ordered, s.ordered)
		next.members = s.members.Clone()
		for name, named := range s.named {
			next.named[name] = named
		}
	}

	if next.members.Add(ext) {
		next.ordered = append(next.ordered, ext)
	}
	if ext.name != "" {
		next.named[ext.name] = ext
	}

	return next
}

// inheritedState returns the closest stamped state in the class's lineage.
// Caller must hold h.mu.
func (h *Hierarchy) inheritedState(c *Class) *extensionState {
	for cur := c; cur != nil; cur = cur.parent {
		if rec, ok := h.records[cur.id]; ok && rec.state != nil {
			return rec.state
		}
	}
	return nil
}

// ownRecord returns the class's own record, creating it if needed.
// Caller must hold h.mu.
func (h *Hierarchy) ownRecord(c *Class) *record {
	rec, ok := h.records[c.id]
	if !ok {
		rec = &record{}
		h.records[c.id] = rec
	}
	if rec.cache == nil {
		rec.cache = make(map[*Extension]*Class)
	}
	return rec
}

// ownState returns the state stamped directly on c, or nil.
// Caller must hold h.mu.
func (h *Hierarchy) ownState(c *Class) *extensionState {
	if rec, ok := h.records[c.id]; ok {
		return rec.state
	}
	return nil
}
