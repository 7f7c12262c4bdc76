// Package parse implements the lexer, recursive-descent parser, and
// diagnostic accumulator that turn source text into S-expressions.
package parse

import "github.com/golisp/golisp/internal/gc"

// ErrorKind enumerates every diagnostic the lexer/parser can raise.
type ErrorKind int

const (
	InvalidEscape ErrorKind = iota
	InvalidSuffix
	InvalidUTF8
	MissingSExpr
	UnterminatedList
	UnterminatedString
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidEscape:
		return "invalid escape"
	case InvalidSuffix:
		return "invalid suffix"
	case InvalidUTF8:
		return "invalid UTF-8"
	case MissingSExpr:
		return "missing S-Expression"
	case UnterminatedList:
		return "unterminated list"
	case UnterminatedString:
		return "unterminated string"
	default:
		return "unknown parse error"
	}
}

// ErrorNode is one diagnostic in a Context's chain: a kind plus the byte
// range of the offending input.
type ErrorNode struct {
	gc.Header

	Kind   ErrorKind
	Index  int
	Length int
	Next   *ErrorNode
}

func (e *ErrorNode) GcNew() gc.Object { return &ErrorNode{} }

// Types names the GC type id Register assigns to ErrorNode.
type Types struct {
	ErrorNode int
}

// Register installs the ErrorNode type with g. Call once per collector,
// alongside sexpr.Register, before any Context is used against it.
func Register(g *gc.GC) Types {
	id := g.RegisterType(gc.TypeInfo{
		Name: "parse-error",
		Size: func(gc.Object) int { return 1 },
		Copy: func(g *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*ErrorNode), neu.(*ErrorNode)
			n.Kind, n.Index, n.Length = o.Kind, o.Index, o.Length
			if o.Next == nil {
				n.Next = nil
				return true
			}
			copied, ok := g.Copy(o.Next)
			if !ok {
				return false
			}
			n.Next = copied.(*ErrorNode)
			return true
		},
		Children: func(obj, cursor gc.Object) gc.Object {
			e := obj.(*ErrorNode)
			if cursor == nil && e.Next != nil {
				return e.Next
			}
			return nil
		},
	})
	return Types{ErrorNode: id}
}

// Context is a GC-managed, tail-appended chain of diagnostics. The zero
// value is an empty context.
type Context struct {
	head *ErrorNode
}

// Count reports the number of diagnostics accumulated.
func (c *Context) Count() int {
	n := 0
	for cur := c.head; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// Errors returns the diagnostics in the order they were added.
func (c *Context) Errors() []*ErrorNode {
	var out []*ErrorNode
	for cur := c.head; cur != nil; cur = cur.Next {
		out = append(out, cur)
	}
	return out
}

// AddError appends a diagnostic to the tail of ctx's chain, rooting the
// chain head across the allocation.
func AddError(g *gc.GC, types Types, ctx *Context, kind ErrorKind, index, length int) {
	if ctx.head == nil {
		node := g.Alloc(types.ErrorNode, 1, func() gc.Object { return &ErrorNode{} }).(*ErrorNode)
		node.Kind, node.Index, node.Length = kind, index, length
		ctx.head = node
		return
	}

	head := gc.Object(ctx.head)
	g.Root(&head)
	defer g.Unroot(&head)

	node := g.Alloc(types.ErrorNode, 1, func() gc.Object { return &ErrorNode{} }).(*ErrorNode)
	node.Kind, node.Index, node.Length = kind, index, length

	cur := head.(*ErrorNode)
	for cur.Next != nil {
		cur = cur.Next
	}
	cur.Next = node
	ctx.head = head.(*ErrorNode)
}
