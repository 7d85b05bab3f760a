// Package manifest declares classes and extensions in CUE and compiles them
// into lineage descriptors.
//
// A manifest is a directory of .cue files forming one CUE instance:
//
//	package widgets
//
//	class: Widget: methods: kind: "widget"
//
//	extension: logging: {
//		name:    "logging"
//		version: "1.0.0"
//		methods: log: "on"
//	}
//
//	extension: audit: {
//		extends: ["logging"]
//		dependencies: logging: "^1.0.0"
//	}
//
// Extension entries are keyed by id. name and version give the engine
// identity used for version deduplication; entries without a name are
// anonymous. Each extension's transformation creates a direct subclass named
// "<Base>+<id>" carrying the declared constant methods and a constructor that
// increments the instance field "init.<id>". With mutate: true the methods are
// defined on the input class instead and no subclass is created.
//
// Load compiles the CUE entries, Validate checks cross-references (unknown
// ids, extends cycles, version syntax) and Build turns a valid Manifest into
// a Set of descriptors.
package manifest
