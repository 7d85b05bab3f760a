package journal

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/testutil"
)

// ============================================================================
// Clock and tokens
// ============================================================================

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	token := gen.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, token, gen.Generate())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

// ============================================================================
// Recorder
// ============================================================================

func newRecorder(t *testing.T, opts ...RecorderOption) (*Recorder, *lineage.Hierarchy) {
	t.Helper()
	st := testutil.MemoryStore(t)
	run := NewRun(NewFixedGenerator("run-1"), "testdata", "digest")

	opts = append([]RecorderOption{WithClock(testutil.NewDeterministicClock())}, opts...)
	rec, err := NewRecorder(context.Background(), st, run, opts...)
	require.NoError(t, err)

	h := lineage.NewHierarchy(
		lineage.WithLogger(testutil.DiscardLogger()),
		lineage.WithObserver(rec),
	)
	return rec, h
}

func TestNewRecorder_RequiresToken(t *testing.T) {
	_, err := NewRecorder(context.Background(), nil, ir.Run{})
	assert.Error(t, err)
}

func TestRecorder_JournalsOutcomes(t *testing.T) {
	rec, h := newRecorder(t)
	base := h.Root("Widget")

	v1 := lineage.MustNew(lineage.Config{
		Name:    "foo",
		Version: "1.0.0",
		Extend:  func(c *lineage.Class) *lineage.Class { return c.Subclass("Foo") },
	})
	v2 := lineage.MustNew(lineage.Config{
		Name:    "foo",
		Version: "2.0.0",
		Extend:  func(c *lineage.Class) *lineage.Class { return c.Subclass("Foo2") },
	})

	sub, err := base.Extend(v1)
	require.NoError(t, err)
	_, err = base.Extend(v1)
	require.NoError(t, err)
	_, err = sub.Extend(v2)
	require.Error(t, err)

	require.NoError(t, rec.Err())
	events := rec.Events()
	require.Len(t, events, 3)

	assert.Equal(t, "applied", events[0].Outcome)
	assert.Equal(t, "Widget#1", events[0].Class)
	assert.Equal(t, "Foo#2", events[0].Result)
	assert.Equal(t, "foo@1.0.0", events[0].Extension)
	assert.Equal(t, int64(1), events[0].Seq)

	assert.Equal(t, "cached", events[1].Outcome)

	conflict := events[2]
	assert.Equal(t, "conflict", conflict.Outcome)
	assert.Empty(t, conflict.Result)
	assert.Equal(t, "VERSION_MISMATCH", conflict.ErrorCode)
	assert.Equal(t, ir.String("1.0.0"), conflict.Details["existing"])
	assert.Equal(t, ir.MustEventID("run-1", 3, "conflict", "Foo#2", "foo@2.0.0"), conflict.ID)

	stored, err := rec.store.ReadEvents(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, events, stored)
}

func TestRecorder_DigestStableAcrossDescriptors(t *testing.T) {
	rec, h := newRecorder(t)
	fn := func(c *lineage.Class) *lineage.Class { return c.Subclass("X") }
	a := lineage.MustNew(lineage.Config{Name: "x", Version: "1.0.0", Extend: fn})
	b := lineage.MustNew(lineage.Config{Name: "x", Version: "1.0.0", Extend: fn})

	_, err := h.Root("A").Extend(a)
	require.NoError(t, err)
	_, err = h.Root("B").Extend(b)
	require.NoError(t, err)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, events[0].ExtensionDigest, events[1].ExtensionDigest)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestRecorder_Labeler(t *testing.T) {
	labels := map[*lineage.Extension]string{}
	labeler := func(e *lineage.Extension) string {
		if l, ok := labels[e]; ok {
			return l
		}
		return e.Label()
	}

	rec, h := newRecorder(t, WithLabeler(labeler))

	dep := lineage.MustNew(lineage.Config{Extend: func(c *lineage.Class) *lineage.Class { return c.Subclass("Dep") }})
	top := lineage.MustNew(lineage.Config{
		Extends: []*lineage.Extension{dep},
		Extend:  func(c *lineage.Class) *lineage.Class { return c.Subclass("Top") },
	})
	labels[dep] = "dep"
	labels[top] = "top"

	_, err := h.Root("Base").Extend(top)
	require.NoError(t, err)

	var got []string
	for _, ev := range rec.Events() {
		got = append(got, ev.Extension+":"+ev.Outcome)
	}
	assert.Equal(t, []string{"dep:applied", "top:applied"}, got)

	r := Record(top, labeler)
	assert.Equal(t, []string{"dep"}, r.Extends)
}

func TestRecorder_KeepsFirstWriteError(t *testing.T) {
	st := testutil.MemoryStore(t)
	run := NewRun(NewFixedGenerator("run-1"), "m", "d")
	rec, err := NewRecorder(context.Background(), st, run)
	require.NoError(t, err)

	require.NoError(t, st.Close())

	h := lineage.NewHierarchy(lineage.WithLogger(testutil.DiscardLogger()), lineage.WithObserver(rec))
	ext := lineage.MustNew(lineage.Config{Extend: func(c *lineage.Class) *lineage.Class { return c }})
	_, err = h.Root("A").Extend(ext)
	require.NoError(t, err, "journal failures never fail Extend")

	assert.Error(t, rec.Err())
	assert.Len(t, rec.Events(), 1)
}

func TestRecorder_MemoryOnly(t *testing.T) {
	rec, err := NewRecorder(context.Background(), nil, ir.Run{Token: "mem"})
	require.NoError(t, err)

	h := lineage.NewHierarchy(lineage.WithLogger(testutil.DiscardLogger()), lineage.WithObserver(rec))
	ext := lineage.MustNew(lineage.Config{Extend: func(c *lineage.Class) *lineage.Class { return c.Subclass("S") }})
	_, err = h.Root("A").Extend(ext)
	require.NoError(t, err)

	require.NoError(t, rec.Err())
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "mem", rec.Run().Token)
}
