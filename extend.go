package lineage

import "fmt"

// extendConfig holds per-call options.
type extendConfig struct {
	versionRange string
}

// ExtendOption configures a single Extend call.
type ExtendOption func(*extendConfig)

// WithVersion sets the range of versions the caller accepts for a same-named
// extension already present in the class's lineage. It has no effect on
// anonymous extensions or when no same-named extension is present. An empty
// range is the same as no range.
func WithVersion(versionRange string) ExtendOption {
	return func(c *extendConfig) {
		c.versionRange = versionRange
	}
}

// Extend applies ext to c. See the package documentation for the rules.
func (c *Class) Extend(ext *Extension, opts ...ExtendOption) (*Class, error) {
	return Extend(c, ext, opts...)
}

// Extend applies ext, and first every extension it extends, to class.
//
// The returned class is class itself when ext (or a compatible same-named
// extension) is already part of its lineage, a previously cached result, or
// the direct subclass produced by ext's transformation.
//
// Arguments are validated before anything is touched. Validation failures are
// ValidationErrors; contract and version failures are *RuntimeError.
func Extend(class *Class, ext *Extension, opts ...ExtendOption) (*Class, error) {
	if err := validateClass(class); err != nil {
		return nil, err
	}
	if err := validateExtensionArg(ext); err != nil {
		return nil, err
	}

	cfg := &extendConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.versionRange != "" && !ValidRange(cfg.versionRange) {
		return nil, ValidationError{
			Field:   "options.version",
			Message: fmt.Sprintf("version must be a valid semver range version string, got %q", cfg.versionRange),
			Code:    ErrCodeInvalidOption,
		}
	}

	return class.hierarchy.extend(class, ext, cfg.versionRange)
}

// extend is the engine proper. ext and its dependencies are already valid.
// versionRange is empty when the caller gave no range.
func (h *Hierarchy) extend(class *Class, ext *Extension, versionRange string) (*Class, error) {
	current := class

	// Dependencies are threaded through sequentially.
	for _, dep := range ext.extends {
		var depRange string
		if dep.name != "" {
			depRange = ext.dependencies[dep.name]
		}
		next, err := h.extend(current, dep, depRange)
		if err != nil {
			return nil, err
		}
		current = next
	}

	h.mu.Lock()
	state := h.inheritedState(current)

	if state != nil && state.members.Contains(ext) {
		h.mu.Unlock()
		h.logger.Debug("extension already applied",
			"class", current.String(),
			"extension", ext.Label())
		h.observe(Event{Class: current, Result: current, Extension: ext, Outcome: OutcomeAlreadyApplied, VersionRange: versionRange})
		return current, nil
	}

	if ext.name != "" && state != nil {
		if existing, ok := state.named[ext.name]; ok {
			h.mu.Unlock()
			return h.checkNamedVersion(current, ext, existing, versionRange)
		}
	}

	if cached, ok := h.ownRecord(current).cache[ext]; ok {
		h.mu.Unlock()
		return h.cacheHit(current, ext, cached, versionRange), nil
	}
	h.mu.Unlock()

	// Concurrent callers applying ext to current share one transformation.
	applied := false
	v, err, _ := h.inflight.Do(flightKey(current, ext), func() (any, error) {
		h.mu.Lock()
		if cached, ok := h.ownRecord(current).cache[ext]; ok {
			h.mu.Unlock()
			return cached, nil
		}
		h.mu.Unlock()

		// The transformation may call back into the hierarchy.
		result := ext.extend(current)
		if result != current && !result.IsDirectSubclassOf(current) {
			return nil, NewContractError(current, ext, result)
		}

		h.mu.Lock()
		// Re-read: a re-entrant call may have stamped current meanwhile.
		stamped := h.inheritedState(current).with(ext)
		h.ownRecord(result).state = stamped
		h.ownRecord(current).cache[ext] = result
		h.mu.Unlock()

		applied = true
		return result, nil
	})
	if err != nil {
		h.logger.Warn("extension rejected",
			"class", current.String(),
			"extension", ext.Label(),
			"error", err)
		h.observe(Event{Class: current, Extension: ext, Outcome: OutcomeRejected, VersionRange: versionRange, Err: err})
		return nil, err
	}

	result := v.(*Class)
	if !applied {
		return h.cacheHit(current, ext, result, versionRange), nil
	}

	h.logger.Info("extension applied",
		"class", current.String(),
		"extension", ext.Label(),
		"result", result.String())
	h.observe(Event{Class: current, Result: result, Extension: ext, Outcome: OutcomeApplied, VersionRange: versionRange})

	return result, nil
}

func (h *Hierarchy) cacheHit(class *Class, ext *Extension, cached *Class, versionRange string) *Class {
	h.logger.Debug("extension cache hit",
		"class", class.String(),
		"extension", ext.Label(),
		"result", cached.String())
	h.observe(Event{Class: class, Result: cached, Extension: ext, Outcome: OutcomeCached, VersionRange: versionRange})
	return cached
}

// flightKey identifies one (class, extension) application.
func flightKey(class *Class, ext *Extension) string {
	return fmt.Sprintf("%d/%p", class.id, ext)
}

// checkNamedVersion decides whether an already-present same-named extension
// satisfies ext. With a range the existing version must fall inside it;
// without one the versions must be identical strings.
func (h *Hierarchy) checkNamedVersion(class *Class, ext, existing *Extension, versionRange string) (*Class, error) {
	var err error
	switch {
	case versionRange != "":
		if !satisfies(existing.version, versionRange) {
			err = NewRangeUnsatisfiedError(class, ext, existing.version, versionRange)
		}
	case existing.version != ext.version:
		err = NewVersionMismatchError(class, ext, existing.version)
	}

	if err != nil {
		h.logger.Warn("extension version conflict",
			"class", class.String(),
			"extension", ext.Label(),
			"existing", existing.Label(),
			"range", versionRange)
		h.observe(Event{Class: class, Extension: ext, Outcome: OutcomeConflict, VersionRange: versionRange, Err: err})
		return nil, err
	}

	h.logger.Debug("named extension satisfied",
		"class", class.String(),
		"extension", ext.Label(),
		"existing", existing.Label())
	h.observe(Event{Class: class, Result: class, Extension: ext, Outcome: OutcomeNamedSatisfied, VersionRange: versionRange})
	return class, nil
}

func (h *Hierarchy) observe(e Event) {
	if h.observer != nil {
		h.observer.Observe(e)
	}
}
