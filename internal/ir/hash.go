package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainExtension = "lineage/extension/v1"
	DomainEvent     = "lineage/event/v1"
	DomainManifest  = "lineage/manifest/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExtensionDigest fingerprints an extension's declared metadata. Two
// descriptors with equal metadata share a digest even though the engine
// treats them as distinct; the digest is for journals, not for identity.
func ExtensionDigest(rec ExtensionRecord) (string, error) {
	canonical, err := MarshalCanonical(rec.Object())
	if err != nil {
		return "", fmt.Errorf("ExtensionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExtension, canonical), nil
}

// EventID computes the content-addressed ID of a journal event. The ID is
// stable given the same run token, sequence number and outcome.
func EventID(runToken string, seq int64, outcome, class, extension string) (string, error) {
	obj := Object{
		"run_token": String(runToken),
		"seq":       Int(seq),
		"outcome":   String(outcome),
		"class":     String(class),
		"extension": String(extension),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// ManifestDigest fingerprints the canonical form of a loaded manifest.
func ManifestDigest(manifest Object) (string, error) {
	canonical, err := MarshalCanonical(manifest)
	if err != nil {
		return "", fmt.Errorf("ManifestDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

// MustExtensionDigest is like ExtensionDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustExtensionDigest(rec ExtensionRecord) string {
	d, err := ExtensionDigest(rec)
	if err != nil {
		panic(err)
	}
	return d
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(runToken string, seq int64, outcome, class, extension string) string {
	id, err := EventID(runToken, seq, outcome, class, extension)
	if err != nil {
		panic(err)
	}
	return id
}
