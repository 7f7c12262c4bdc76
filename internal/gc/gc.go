// Package gc implements a precise, relocating two-space copying collector.
//
// Unlike a byte-addressed arena, allocation cost here is expressed in
// abstract size units supplied by each registered type (see TypeInfo.Size)
// rather than raw bytes: Go gives every allocated object a real, GC-managed
// home on the Go heap regardless, so this collector's arenas exist to model
// the budget/exhaustion/relocation behavior of the source system, not to
// own memory directly.
package gc

import "reflect"

// Object is implemented by every value this collector manages. Concrete
// types embed Header, which supplies the method set.
type Object interface {
	GcTypeID() int
	GcForward() Object
	SetGcForward(Object)
}

// Header is the GC object header: a type tag and a forwarding pointer set
// only while a collection is relocating this object. Embed Header by value
// in any collectable struct; always hold such structs behind a pointer so
// identity (and therefore forwarding) is meaningful.
type Header struct {
	typeID  int
	forward Object
}

func (h *Header) GcTypeID() int         { return h.typeID }
func (h *Header) GcForward() Object     { return h.forward }
func (h *Header) SetGcForward(o Object) { h.forward = o }
func (h *Header) setGcTypeID(id int)    { h.typeID = id }

// TypeInfo is a type registry entry: everything the collector needs to
// size, copy, and walk one kind of object without knowing its concrete
// shape.
type TypeInfo struct {
	// Name is used only in diagnostics.
	Name string
	// Size reports the allocation cost of obj in the collector's abstract
	// units; it may vary per-instance (e.g. a symbol's byte length).
	Size func(obj Object) int
	// Copy fills neu's payload from old, recursively relocating any owned
	// pointers via GC.Copy. Returns false if a child relocation failed
	// (arena exhaustion mid-copy); the collector aborts and retries.
	Copy func(g *GC, old, neu Object) bool
	// Children iterates owned pointers for diagnostic/clearing traversals
	// only; it is not used by the core copying path. cursor is nil to
	// start; Children returns the next child after cursor, or nil when
	// exhausted.
	Children func(obj Object, cursor Object) Object
}

const initialRegionSize = 4096

// Arena is a bump region tracking allocation cost against a capacity
// budget.
type Arena struct {
	capacity int
	used     int
}

func newArena(capacity int) *Arena {
	return &Arena{capacity: capacity}
}

func (a *Arena) tryReserve(cost int) bool {
	if a.used+cost > a.capacity {
		return false
	}
	a.used += cost
	return true
}

func (a *Arena) reset() { a.used = 0 }

// Capacity returns the arena's current budget in allocation units.
func (a *Arena) Capacity() int { return a.capacity }

// Used returns the budget consumed since the last reset.
func (a *Arena) Used() int { return a.used }

func (a *Arena) grow() {
	capacity := a.capacity * 2
	if capacity < initialRegionSize {
		capacity = initialRegionSize
	}
	a.capacity = capacity
	a.used = 0
}

// GC owns two arenas (active/inactive), a registered type table, and the
// current root set.
type GC struct {
	active, inactive *Arena
	roots            []*Object
	types            []TypeInfo
	collecting       bool
}

// New constructs a GC with both arenas starting at initialCapacity
// allocation units (0 is a valid, empty starting budget).
func New(initialCapacity int) *GC {
	return &GC{
		active:   newArena(initialCapacity),
		inactive: newArena(initialCapacity),
	}
}

// RegisterType adds a type to the registry, returning its monotonically
// increasing type id.
func (g *GC) RegisterType(info TypeInfo) int {
	id := len(g.types)
	g.types = append(g.types, info)
	return id
}

// Root registers cell with the collector. Must not be called during a
// collection. The same cell may be registered more than once (aliased
// paths); each registration is honored independently by Unroot.
func (g *GC) Root(cell *Object) {
	if g.collecting {
		panic("gc: Root called during collection")
	}
	g.roots = append(g.roots, cell)
}

// Unroot removes the most recently added registration matching cell. It
// panics if cell was never rooted, matching the source's assertion that
// gc_unroot must be called with a rooted object.
func (g *GC) Unroot(cell *Object) {
	if g.collecting {
		panic("gc: Unroot called during collection")
	}
	for i := len(g.roots) - 1; i >= 0; i-- {
		if g.roots[i] == cell {
			g.roots[i] = g.roots[len(g.roots)-1]
			g.roots = g.roots[:len(g.roots)-1]
			return
		}
	}
	panic("gc: Unroot called with an object that was never rooted")
}

// Alloc allocates a fresh object of typeID with the given cost, running
// collections and growing the arenas as needed until it succeeds. factory
// must construct a zero-value instance of the target concrete type; Alloc
// assigns its header before returning.
func (g *GC) Alloc(typeID int, cost int, factory func() Object) Object {
	if obj, ok := g.tryAllocActive(cost, factory, typeID); ok {
		return obj
	}
	g.collect()
	for {
		if obj, ok := g.tryAllocActive(cost, factory, typeID); ok {
			return obj
		}
		g.inactive.grow()
		g.collect()
	}
}

// headerSetter is implemented automatically by any struct embedding
// Header, since setGcTypeID has a pointer receiver on *Header.
type headerSetter interface {
	setGcTypeID(int)
}

// Prototype is implemented by concrete types so the collector can obtain a
// fresh zero-value instance of the same concrete type during Copy without
// importing or reflecting over it. Exported (unlike headerSetter) because
// concrete value types live in other packages: an unexported interface
// method can only be satisfied by types declared in this package, and
// GcNew must be implemented by every collectable type, wherever it lives.
type Prototype interface {
	GcNew() Object
}

func (g *GC) tryAllocActive(cost int, factory func() Object, typeID int) (Object, bool) {
	if !g.active.tryReserve(cost) {
		return nil, false
	}
	obj := factory()
	obj.(headerSetter).setGcTypeID(typeID)
	return obj, true
}

// Copy relocates obj into to-space (the inactive arena during a
// collection), returning its new address. A nil Object (including a typed
// nil pointer acting as NIL) is returned unchanged. ok is false only when
// the to-space arena is exhausted mid-copy; the caller must unwind without
// committing any further state, which every call site here does simply by
// returning the same (nil, false) immediately.
func (g *GC) Copy(obj Object) (Object, bool) {
	if obj == nil || isGcNil(obj) {
		return obj, true
	}
	if fwd := obj.GcForward(); fwd != nil {
		return fwd, true
	}

	typeID := obj.GcTypeID()
	info := g.types[typeID]
	cost := info.Size(obj)

	if !g.inactive.tryReserve(cost) {
		return nil, false
	}
	neu := obj.(Prototype).GcNew()
	neu.(headerSetter).setGcTypeID(typeID)

	obj.SetGcForward(neu)
	if !info.Copy(g, obj, neu) {
		return nil, false
	}
	return neu, true
}

// isGcNil reports whether obj is a non-nil interface wrapping a nil
// concrete pointer — the representation NIL uses (a typed nil *Cons).
// Such a value carries no header and must never reach GcTypeID/GcForward.
func isGcNil(obj Object) bool {
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func (g *GC) clearForwarding() {
	for _, r := range g.roots {
		if *r == nil || isGcNil(*r) {
			continue
		}
		g.clearForwardingObject(*r)
	}
}

func (g *GC) clearForwardingObject(obj Object) {
	if obj == nil || isGcNil(obj) || obj.GcForward() == nil {
		return
	}
	obj.SetGcForward(nil)

	info := g.types[obj.GcTypeID()]
	if info.Children == nil {
		return
	}
	var cursor Object
	for {
		child := info.Children(obj, cursor)
		if child == nil {
			break
		}
		g.clearForwardingObject(child)
		cursor = child
	}
}

// collect runs one full collection cycle, retrying from the start whenever
// to-space is exhausted mid-copy.
func (g *GC) collect() {
	g.collecting = true
	for {
		if g.copyAllRoots() {
			break
		}
		g.clearForwarding()
		g.inactive.grow()
	}

	g.active, g.inactive = g.inactive, g.active
	g.reassignRoots()

	g.inactive.reset()
	g.collecting = false
}

func (g *GC) copyAllRoots() bool {
	for _, r := range g.roots {
		if *r == nil {
			continue
		}
		if _, ok := g.Copy(*r); !ok {
			return false
		}
	}
	return true
}

func (g *GC) reassignRoots() {
	for _, r := range g.roots {
		if *r == nil || isGcNil(*r) {
			continue
		}
		if (*r).GcForward() == nil {
			continue
		}
		*r = (*r).GcForward()
	}
}

// Collect forces a collection cycle. Exposed for DEBUG_STRESS_GC-style
// test harnesses and for an embedder that wants to reclaim eagerly.
func (g *GC) Collect() { g.collect() }
