package lineage

// IsExtendedWith reports whether ext, or a same-named extension of any
// version, was stamped onto c itself. Only c's own bookkeeping is consulted:
// a plain subclass of an extended class reports false.
func (c *Class) IsExtendedWith(ext *Extension) (bool, error) {
	if err := validateClass(c); err != nil {
		return false, err
	}
	if err := validateExtensionArg(ext); err != nil {
		return false, err
	}

	h := c.hierarchy
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.ownState(c)
	if state == nil {
		return false, nil
	}
	if state.members.Contains(ext) {
		return true, nil
	}
	if ext.name != "" {
		_, ok := state.named[ext.name]
		return ok, nil
	}
	return false, nil
}

// Extensions returns the extensions applied in c's lineage, in application
// order. The result is empty, never nil, when nothing was applied.
func (c *Class) Extensions() []*Extension {
	if c == nil || c.hierarchy == nil {
		return []*Extension{}
	}

	h := c.hierarchy
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.inheritedState(c)
	if state == nil {
		return []*Extension{}
	}
	out := make([]*Extension, len(state.ordered))
	copy(out, state.ordered)
	return out
}

// IsDirectlyExtended reports whether c itself was produced (or stamped) by
// Extend, as opposed to inheriting bookkeeping from an ancestor.
func (c *Class) IsDirectlyExtended() bool {
	if c == nil || c.hierarchy == nil {
		return false
	}

	h := c.hierarchy
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ownState(c) != nil
}

// IsExtendedWith delegates to the instance's class.
func (i *Instance) IsExtendedWith(ext *Extension) (bool, error) {
	if i == nil {
		return false, ValidationError{Message: "instance is nil", Code: ErrCodeInvalidInstance}
	}
	return i.class.IsExtendedWith(ext)
}

// Extensions delegates to the instance's class.
func (i *Instance) Extensions() []*Extension {
	if i == nil {
		return []*Extension{}
	}
	return i.class.Extensions()
}

// IsDirectlyExtended delegates to the instance's class.
func (i *Instance) IsDirectlyExtended() bool {
	if i == nil {
		return false
	}
	return i.class.IsDirectlyExtended()
}
