package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golisp/golisp/internal/gc"
)

// testArray is a minimal leaf type (no children) used to exercise the
// collector without depending on any other package.
type testArray struct {
	gc.Header
	val int
}

func (a *testArray) GcNew() gc.Object { return &testArray{} }

func registerTestType(g *gc.GC, cost int) int {
	return g.RegisterType(gc.TypeInfo{
		Name: "testArray",
		Size: func(gc.Object) int { return cost },
		Copy: func(_ *gc.GC, old, neu gc.Object) bool {
			neu.(*testArray).val = old.(*testArray).val
			return true
		},
		Children: func(gc.Object, gc.Object) gc.Object { return nil },
	})
}

func TestHandleFailedAllocDuringCollect(t *testing.T) {
	g := gc.New(0)
	lowType := registerTestType(g, 1)
	highType := registerTestType(g, 4096)

	const n = 8
	var high [n]gc.Object
	var low [n]gc.Object

	for i := 0; i < n; i++ {
		high[i] = g.Alloc(highType, 4096, func() gc.Object { return &testArray{} })
		high[i].(*testArray).val = i
		g.Root(&high[i])
	}
	for i := 0; i < n; i++ {
		low[i] = g.Alloc(lowType, 1, func() gc.Object { return &testArray{} })
		low[i].(*testArray).val = i
		g.Root(&low[i])
	}

	for i := 0; i < n; i++ {
		g.Unroot(&low[i])
		g.Unroot(&high[i])
	}
	for i := 0; i < n; i++ {
		g.Root(&low[i])
		g.Root(&high[i])
	}

	for i := 0; i < n; i++ {
		assert.Equal(t, i, low[i].(*testArray).val)
		assert.Equal(t, i, high[i].(*testArray).val)
	}

	g.Collect()

	for i := 0; i < n; i++ {
		require.Equal(t, i, low[i].(*testArray).val)
		require.Equal(t, i, high[i].(*testArray).val)
	}
}

func TestSupportRedundantRooting(t *testing.T) {
	g := gc.New(0)
	typeID := registerTestType(g, 1)

	obj := g.Alloc(typeID, 1, func() gc.Object { return &testArray{} })
	obj.(*testArray).val = 0xD

	g.Root(&obj)
	g.Root(&obj)
	g.Root(&obj)

	g.Collect()
	assert.Equal(t, 0xD, obj.(*testArray).val)

	g.Unroot(&obj)
	g.Unroot(&obj)
	g.Unroot(&obj)
}

func TestArenaExhaustionTriggersGrowth(t *testing.T) {
	g := gc.New(8)
	typeID := registerTestType(g, 1)

	objs := make([]gc.Object, 64)
	for i := 0; i < 64; i++ {
		objs[i] = g.Alloc(typeID, 1, func() gc.Object { return &testArray{} })
		objs[i].(*testArray).val = i
		g.Root(&objs[i])
	}

	for i, o := range objs {
		require.Equal(t, i, o.(*testArray).val)
	}
}

func TestUnrootPanicsWhenNeverRooted(t *testing.T) {
	g := gc.New(0)
	var cell gc.Object
	assert.Panics(t, func() { g.Unroot(&cell) })
}
