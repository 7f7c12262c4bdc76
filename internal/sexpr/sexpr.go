// Package sexpr implements the tagged S-expression value model: Symbol,
// String, Number and Cons, with NIL represented as a typed-nil *Cons.
package sexpr

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golisp/golisp/internal/gc"
)

// Kind is the observable S-expression variant. Values are fixed at 0..3 so
// that, once registered with the GC in declaration order below, the type id
// the collector assigns IS the variant tag.
type Kind int

const (
	KindSymbol Kind = iota
	KindString
	KindNumber
	KindCons
)

func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindCons:
		return "cons"
	default:
		return "unknown"
	}
}

// Value is any collectable S-expression. It is a plain alias for gc.Object
// (rather than a distinct interface) so that a *Value slot is always a
// valid root cell — sexpr.Value and gc.Object are, by construction, the
// same type, so &someValue can be passed directly to GC.Root/Unroot without
// an intermediate conversion at every call site.
type Value = gc.Object

// Symbol is a length-prefixed identifier. Bytes are opaque; unicode is
// treated as raw bytes, matching the source's s8-backed SExprSymbol.
type Symbol struct {
	gc.Header
	Bytes []byte
}

func (s *Symbol) GcNew() gc.Object { return &Symbol{} }

// String has the same shape as Symbol but a distinct type id.
type String struct {
	gc.Header
	Bytes []byte
}

func (s *String) GcNew() gc.Object { return &String{} }

// Number is a single IEEE-754 double.
type Number struct {
	gc.Header
	Val float64
}

func (n *Number) GcNew() gc.Object { return &Number{} }

// Cons is a pair of S-expression references. NIL is represented as a
// typed-nil *Cons; its observable Kind is still KindCons.
type Cons struct {
	gc.Header
	Car, Cdr Value
}

func (c *Cons) GcNew() gc.Object { return &Cons{} }

// Nil is the canonical NIL value.
var Nil Value = (*Cons)(nil)

// IsNil reports whether v is NIL — a *Cons holding a nil pointer.
func IsNil(v Value) bool {
	c, ok := v.(*Cons)
	return ok && c == nil
}

// KindOf reports the observable variant of v, including NIL (which reports
// KindCons per the data model).
func KindOf(v Value) Kind {
	switch v.(type) {
	case *Symbol:
		return KindSymbol
	case *String:
		return KindString
	case *Number:
		return KindNumber
	case *Cons:
		return KindCons
	default:
		panic(fmt.Sprintf("sexpr: value of unregistered type %T", v))
	}
}

// Car returns the car field of a cons cell. Panics (checked-cast assertion,
// matching the source's AS_CONS) if v is not a Cons, or if v is NIL.
func Car(v Value) Value {
	c, ok := v.(*Cons)
	if !ok || c == nil {
		panic("sexpr: car of non-cons or NIL")
	}
	return c.Car
}

// Cdr returns the cdr field of a cons cell. Same preconditions as Car.
func Cdr(v Value) Value {
	c, ok := v.(*Cons)
	if !ok || c == nil {
		panic("sexpr: cdr of non-cons or NIL")
	}
	return c.Cdr
}

// SymbolBytes returns the identifier bytes of a Symbol. Panics on wrong type.
func SymbolBytes(v Value) []byte {
	s, ok := v.(*Symbol)
	if !ok {
		panic("sexpr: not a symbol")
	}
	return s.Bytes
}

// StringBytes returns the contents of a String. Panics on wrong type.
func StringBytes(v Value) []byte {
	s, ok := v.(*String)
	if !ok {
		panic("sexpr: not a string")
	}
	return s.Bytes
}

// NumberValue returns the float64 payload of a Number. Panics on wrong type.
func NumberValue(v Value) float64 {
	n, ok := v.(*Number)
	if !ok {
		panic("sexpr: not a number")
	}
	return n.Val
}

// SymbolEquals reports whether a and b are both symbols with identical
// bytes.
func SymbolEquals(a, b Value) bool {
	as, ok := a.(*Symbol)
	if !ok {
		return false
	}
	bs, ok := b.(*Symbol)
	if !ok {
		return false
	}
	return string(as.Bytes) == string(bs.Bytes)
}

// Types names the four fixed GC type ids registered by Register, in the
// order the data model requires (symbol=0, string=1, number=2, cons=3).
type Types struct {
	Symbol, String, Number, Cons int
}

// Register installs the four S-expression types with g, in the fixed order
// the data model requires. It must be the first thing registered with a
// fresh GC so the assigned type ids line up with Kind's values.
func Register(g *gc.GC) Types {
	symID := g.RegisterType(gc.TypeInfo{
		Name: "symbol",
		Size: func(o gc.Object) int { return 1 + len(o.(*Symbol).Bytes) },
		Copy: func(_ *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*Symbol), neu.(*Symbol)
			n.Bytes = append([]byte(nil), o.Bytes...)
			return true
		},
		Children: func(gc.Object, gc.Object) gc.Object { return nil },
	})

	strID := g.RegisterType(gc.TypeInfo{
		Name: "string",
		Size: func(o gc.Object) int { return 1 + len(o.(*String).Bytes) },
		Copy: func(_ *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*String), neu.(*String)
			n.Bytes = append([]byte(nil), o.Bytes...)
			return true
		},
		Children: func(gc.Object, gc.Object) gc.Object { return nil },
	})

	numID := g.RegisterType(gc.TypeInfo{
		Name: "number",
		Size: func(gc.Object) int { return 1 },
		Copy: func(_ *gc.GC, old, neu gc.Object) bool {
			neu.(*Number).Val = old.(*Number).Val
			return true
		},
		Children: func(gc.Object, gc.Object) gc.Object { return nil },
	})

	consID := g.RegisterType(gc.TypeInfo{
		Name: "cons",
		Size: func(gc.Object) int { return 1 },
		Copy: func(g *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*Cons), neu.(*Cons)

			car, ok := g.Copy(o.Car)
			if !ok {
				return false
			}
			cdr, ok := g.Copy(o.Cdr)
			if !ok {
				return false
			}
			n.Car, n.Cdr = car, cdr
			return true
		},
		Children: func(obj, cursor gc.Object) gc.Object {
			c := obj.(*Cons)
			car, cdr := Value(c.Car), Value(c.Cdr)
			if cursor == nil {
				if !IsNil(car) {
					return car
				}
				if !IsNil(cdr) {
					return cdr
				}
				return nil
			}
			if cursor == car && !IsNil(cdr) {
				return cdr
			}
			return nil
		},
	})

	return Types{Symbol: symID, String: strID, Number: numID, Cons: consID}
}

// Print writes v in the source language's textual form: lists as
// "(a b c)", dotted tails as " . x", numbers with trailing zeros trimmed,
// symbols and strings as raw bytes.
func Print(w io.Writer, v Value) {
	switch KindOf(v) {
	case KindSymbol:
		w.Write(SymbolBytes(v))
	case KindString:
		w.Write(StringBytes(v))
	case KindNumber:
		io.WriteString(w, FormatNumber(NumberValue(v)))
	case KindCons:
		printCons(w, v)
	}
}

func printCons(w io.Writer, v Value) {
	io.WriteString(w, "(")
	for !IsNil(v) {
		Print(w, Car(v))

		cdr := Cdr(v)
		if KindOf(cdr) != KindCons {
			io.WriteString(w, " . ")
			Print(w, cdr)
			break
		}

		if !IsNil(cdr) {
			io.WriteString(w, " ")
		}
		v = cdr
	}
	io.WriteString(w, ")")
}

// ToString renders v the same way Print does, returning a string.
func ToString(v Value) string {
	var b strings.Builder
	Print(&b, v)
	return b.String()
}

// FormatNumber renders f the way the source's sexpr_print does: ten
// fractional digits, then trailing zeros (and a bare trailing '.') trimmed.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 10, 64)
	if strings.ContainsAny(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// DebugString renders a structural dump of v — type, forwarding pointer,
// payload, and (for Cons) car/cdr — mirroring the source's
// sexpr_print_raw. Kept test-only: the original gates it behind
// ENABLE_TESTS rather than exposing it as a user-facing feature.
func DebugString(v Value) string {
	var b strings.Builder
	debugWrite(&b, v, 0)
	return b.String()
}

func debugWrite(b *strings.Builder, v Value, depth int) {
	if IsNil(v) {
		b.WriteString("NIL")
		return
	}

	tabs := strings.Repeat("\t", depth+1)
	fmt.Fprintf(b, "SExpr {\n%stype: %s\n", tabs, KindOf(v))
	if fwd := v.GcForward(); fwd != nil {
		fmt.Fprintf(b, "%sforward: %p\n", tabs, fwd)
	} else {
		fmt.Fprintf(b, "%sforward: NULL\n", tabs)
	}

	switch KindOf(v) {
	case KindSymbol:
		fmt.Fprintf(b, "%ssymbol: %s\n", tabs, SymbolBytes(v))
	case KindString:
		fmt.Fprintf(b, "%sstring: %q\n", tabs, StringBytes(v))
	case KindNumber:
		fmt.Fprintf(b, "%snumber: %f\n", tabs, NumberValue(v))
	case KindCons:
		b.WriteString(tabs + "car: ")
		debugWrite(b, Car(v), depth+1)
		b.WriteString("\n" + tabs + "cdr: ")
		debugWrite(b, Cdr(v), depth+1)
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("\t", depth) + "}")
}
