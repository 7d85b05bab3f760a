package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/lineage/internal/ir"
)

// marshalDetails converts event details to canonical JSON TEXT for storage.
func marshalDetails(details ir.Object) (string, error) {
	if details == nil {
		details = ir.Object{}
	}
	data, err := ir.MarshalCanonical(details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return string(data), nil
}

// unmarshalDetails parses canonical JSON TEXT. Empty details read back as
// nil so they round-trip with omitempty.
func unmarshalDetails(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return obj, nil
}
