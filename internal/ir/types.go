package ir

// ExtensionRecord is the journal view of an extension descriptor.
type ExtensionRecord struct {
	Label        string            `json:"label"`
	Name         string            `json:"name,omitempty"`
	Version      string            `json:"version,omitempty"`
	Extends      []string          `json:"extends"`
	Dependencies map[string]string `json:"dependencies"`
}

// Object returns the canonical form of the record.
func (r ExtensionRecord) Object() Object {
	obj := Object{
		"label":        String(r.Label),
		"extends":      Strings(r.Extends),
		"dependencies": StringMap(r.Dependencies),
	}
	if r.Name != "" {
		obj["name"] = String(r.Name)
		obj["version"] = String(r.Version)
	}
	return obj
}

// Run is one journaled session of extension applications.
type Run struct {
	Token          string `json:"token"`
	Manifest       string `json:"manifest"`
	ManifestDigest string `json:"manifest_digest"`
	EngineVersion  string `json:"engine_version"`
	SchemaVersion  string `json:"schema_version"`
}

// Event records one outcome of the extension engine.
//
// Class and Result are class labels ("Name#id"). Result is empty for
// conflict and rejected outcomes.
type Event struct {
	ID              string `json:"id"`
	RunToken        string `json:"run_token"`
	Seq             int64  `json:"seq"`
	Outcome         string `json:"outcome"`
	Class           string `json:"class"`
	Result          string `json:"result,omitempty"`
	Extension       string `json:"extension"`
	ExtensionDigest string `json:"extension_digest"`
	VersionRange    string `json:"version_range,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	Error           string `json:"error,omitempty"`
	Details         Object `json:"details,omitempty"`
}
