// Package lineage lets a class declare composable, versioned extensions that
// are applied by subclassing.
//
// Classes are handles owned by a Hierarchy. A Hierarchy is also the arena for
// the extension side-table: which extensions each class carries, which named
// extensions are present in its lineage, and a memo of the subclasses already
// produced from it.
//
//	h := lineage.NewHierarchy()
//	base := h.Root("Widget")
//
//	logging := lineage.MustNew(lineage.Config{
//	    Name:    "logging",
//	    Version: "1.0.0",
//	    Extend: func(in *lineage.Class) *lineage.Class {
//	        return in.Subclass("Logging", lineage.WithMethod("log", logMethod))
//	    },
//	})
//
//	sub, err := base.Extend(logging)   // new direct subclass of base
//	again, _ := base.Extend(logging)   // again == sub
//
// # Application rules
//
// Extend resolves the descriptor's own Extends list first, threading the class
// through each dependency in declaration order. It then short-circuits when:
//   - the exact descriptor is already in the class's lineage;
//   - a descriptor with the same name is present and its version is
//     compatible (exact string equality, or satisfies the caller's range
//     given WithVersion);
//   - the class's own cache already holds a subclass for the descriptor.
//
// Otherwise the transformation runs once. It must return the input class
// itself or a direct subclass of it.
//
// Incompatible named versions are reported as *RuntimeError values with code
// VERSION_MISMATCH (no range given) or VERSION_RANGE_UNSATISFIED (range given).
package lineage
