package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDDeterminism(t *testing.T) {
	id1, err := EventID("run-1", 1, "applied", "Widget#1", "logging@1.0.0")
	require.NoError(t, err)
	id2, err := EventID("run-1", 1, "applied", "Widget#1", "logging@1.0.0")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "EventID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestEventIDChangesWithInput(t *testing.T) {
	base := MustEventID("run-1", 1, "applied", "Widget#1", "logging@1.0.0")

	assert.NotEqual(t, base, MustEventID("run-2", 1, "applied", "Widget#1", "logging@1.0.0"))
	assert.NotEqual(t, base, MustEventID("run-1", 2, "applied", "Widget#1", "logging@1.0.0"))
	assert.NotEqual(t, base, MustEventID("run-1", 1, "cached", "Widget#1", "logging@1.0.0"))
	assert.NotEqual(t, base, MustEventID("run-1", 1, "applied", "Widget#2", "logging@1.0.0"))
	assert.NotEqual(t, base, MustEventID("run-1", 1, "applied", "Widget#1", "logging@1.1.0"))
}

func TestExtensionDigest(t *testing.T) {
	rec := ExtensionRecord{
		Label:        "logging@1.0.0",
		Name:         "logging",
		Version:      "1.0.0",
		Extends:      []string{"base@1.0.0"},
		Dependencies: map[string]string{"base": "^1.0.0"},
	}

	d1 := MustExtensionDigest(rec)
	assert.Len(t, d1, 64)

	reordered := rec
	reordered.Dependencies = map[string]string{"base": "^1.0.0"}
	assert.Equal(t, d1, MustExtensionDigest(reordered), "equal metadata, equal digest")

	changed := rec
	changed.Version = "1.0.1"
	changed.Label = "logging@1.0.1"
	assert.NotEqual(t, d1, MustExtensionDigest(changed))
}

func TestExtensionRecordObjectOmitsAnonymousIdentity(t *testing.T) {
	obj := ExtensionRecord{Label: "anonymous#3"}.Object()

	_, hasName := obj["name"]
	assert.False(t, hasName)
	assert.Equal(t, Array{}, obj["extends"])
	assert.Equal(t, Object{}, obj["dependencies"])
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainExtension, data),
		hashWithDomain(DomainEvent, data))
}

func TestManifestDigest(t *testing.T) {
	a, err := ManifestDigest(Object{"extension": Object{"x": Object{}}})
	require.NoError(t, err)
	b, err := ManifestDigest(Object{"extension": Object{"y": Object{}}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
