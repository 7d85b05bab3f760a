package lineage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(in *Class) *Class { return in }

func codes(err error) []string {
	var out []string
	for _, ve := range ValidationErrors(err) {
		out = append(out, ve.Code)
	}
	return out
}

func TestNew_Valid(t *testing.T) {
	dep := MustNew(Config{Name: "dep", Version: "1.0.0", Extend: noop})

	ext, err := New(Config{
		Name:         "logging",
		Version:      "2.1.0",
		Extend:       noop,
		Extends:      []*Extension{dep},
		Dependencies: map[string]string{"dep": "^1.0.0"},
	})
	require.NoError(t, err)

	assert.Equal(t, "logging", ext.Name())
	assert.Equal(t, "2.1.0", ext.Version())
	assert.True(t, ext.IsNamed())
	assert.Equal(t, []*Extension{dep}, ext.Extends())
	assert.Equal(t, map[string]string{"dep": "^1.0.0"}, ext.Dependencies())
	assert.Equal(t, "logging@2.1.0", ext.Label())
}

func TestNew_Anonymous(t *testing.T) {
	ext, err := Anonymous(noop)
	require.NoError(t, err)

	assert.False(t, ext.IsNamed())
	assert.Empty(t, ext.Extends())
	assert.Empty(t, ext.Dependencies())
	assert.True(t, strings.HasPrefix(ext.Label(), "anonymous#"))
}

func TestNew_AnonymousLabelsAreDistinct(t *testing.T) {
	a := MustNew(Config{Extend: noop})
	b := MustNew(Config{Extend: noop})
	assert.NotEqual(t, a.Label(), b.Label())
}

func TestNew_VersionWithoutNameIgnored(t *testing.T) {
	ext, err := New(Config{Version: "not-semver", Extend: noop})
	require.NoError(t, err, "version is only checked for named extensions")
	assert.False(t, ext.IsNamed())
}

func TestNew_VPrefixAccepted(t *testing.T) {
	_, err := Named("foo", "v1.2.3", noop)
	require.NoError(t, err)
}

func TestNew_MissingExtend(t *testing.T) {
	_, err := New(Config{Name: "foo", Version: "1.0.0"})
	require.Error(t, err)
	assert.Equal(t, []string{ErrCodeMissingExtend}, codes(err))
	assert.Contains(t, err.Error(), "extend must be a function")
}

func TestNew_InvalidVersions(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"missing", ""},
		{"range", "^1.0.0"},
		{"partial", "1.0"},
		{"garbage", "one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Named("foo", tt.version, noop)
			require.Error(t, err)
			errs := ValidationErrors(err)
			require.Len(t, errs, 1)
			assert.Equal(t, ErrCodeInvalidVersion, errs[0].Code)
			assert.Equal(t, "version", errs[0].Field)
		})
	}
}

func TestNew_BlankName(t *testing.T) {
	_, err := Named("   ", "1.0.0", noop)
	require.Error(t, err)
	assert.Equal(t, []string{ErrCodeInvalidName}, codes(err))
}

func TestNew_InvalidDependencies(t *testing.T) {
	_, err := New(Config{
		Extend: noop,
		Dependencies: map[string]string{
			"good": "~1.2",
			"bad":  "whatever",
			"":     "^1.0.0",
		},
	})
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrCodeDependencyName, errs[0].Code)
	assert.Equal(t, ErrCodeInvalidRange, errs[1].Code)
	assert.Equal(t, "dependencies.bad", errs[1].Field)
}

func TestNew_NestedExtendsValidated(t *testing.T) {
	broken := &Extension{name: "inner", version: "x"}

	_, err := New(Config{Extend: noop, Extends: []*Extension{nil, broken}})
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 3)
	assert.Equal(t, "extends[0]", errs[0].Field)
	assert.Equal(t, ErrCodeNotAnExtension, errs[0].Code)
	assert.Equal(t, "extends[1].version", errs[1].Field)
	assert.Equal(t, "extends[1].extend", errs[2].Field)
}

func TestNew_CollectsAllErrors(t *testing.T) {
	_, err := New(Config{
		Name:         "foo",
		Dependencies: map[string]string{"bar": "?"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{ErrCodeInvalidVersion, ErrCodeMissingExtend, ErrCodeInvalidRange}, codes(err))
}

func TestNew_DefensiveCopies(t *testing.T) {
	dep := MustNew(Config{Extend: noop})
	extends := []*Extension{dep}
	deps := map[string]string{"x": "^1.0.0"}

	ext := MustNew(Config{Extend: noop, Extends: extends, Dependencies: deps})

	extends[0] = nil
	deps["x"] = "garbage"
	assert.Same(t, dep, ext.Extends()[0])
	assert.Equal(t, "^1.0.0", ext.Dependencies()["x"])

	got := ext.Extends()
	got[0] = nil
	assert.Same(t, dep, ext.Extends()[0])
}

func TestNew_Options(t *testing.T) {
	a := MustNew(Config{Name: "a", Version: "1.0.0", Extend: noop})
	b := MustNew(Config{Name: "b", Version: "1.0.0", Extend: noop})

	ext, err := Named("top", "0.1.0", noop,
		WithExtends(a),
		WithExtends(b),
		WithDependency("b", ">=1.0.0"),
		WithDependency("a", "1.x"))
	require.NoError(t, err)

	assert.Equal(t, []*Extension{a, b}, ext.Extends())
	assert.Equal(t, []string{"a", "b"}, ext.DependencyNames())
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(Config{})
	})
}

func TestLabel_Nil(t *testing.T) {
	var ext *Extension
	assert.Equal(t, "<nil>", ext.Label())
}

func TestValidRange(t *testing.T) {
	for _, r := range []string{"^1.0.0", "~1.2", ">=1.0.0 <2.0.0", "1.x", "*"} {
		assert.True(t, ValidRange(r), r)
	}
	for _, r := range []string{"", "  ", "banana"} {
		assert.False(t, ValidRange(r), r)
	}
}

func TestValidVersion(t *testing.T) {
	assert.True(t, ValidVersion("1.0.0"))
	assert.True(t, ValidVersion("1.0.0-beta.1"))
	assert.False(t, ValidVersion("1"))
	assert.False(t, ValidVersion(""))
}
