package parse

import (
	"math"
	"strconv"

	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

// Parser wraps a Lexer with one token of lookahead.
type Parser struct {
	lexer *Lexer

	hasPeeked     bool
	peekedErrored bool
	peeked        Token
}

// NewParser constructs a parser over a fixed, complete input buffer.
func NewParser(input []byte) *Parser {
	return &Parser{lexer: NewLexer(input)}
}

// NewStreamingParser constructs a parser over an input buffer that may
// grow via more, matching the source's REPL-facing parser.
func NewStreamingParser(initial []byte, more func() ([]byte, bool)) *Parser {
	return &Parser{lexer: NewStreamingLexer(initial, more)}
}

// Input returns the bytes the parser has read so far, for rendering the
// text of an ErrorNode's span in diagnostics.
func (p *Parser) Input() []byte { return p.lexer.input }

func (p *Parser) peekToken(g ErrorSink) (Token, bool) {
	if p.hasPeeked {
		return p.peeked, p.peekedErrored
	}
	p.peeked, p.peekedErrored = p.lexer.NextToken(g)
	p.hasPeeked = true
	return p.peeked, p.peekedErrored
}

func (p *Parser) nextToken(g ErrorSink) (Token, bool) {
	tok, hadError := p.peekToken(g)
	p.hasPeeked = false
	return tok, hadError
}

func (p *Parser) parseSymbol(m *vm.VM, g ErrorSink) sexpr.Value {
	tok, hadError := p.nextToken(g)
	if hadError {
		return m.NewSymbol([]byte("had error when parsing symbol"))
	}
	return m.NewSymbol(p.lexer.TokenBytes(tok))
}

func (p *Parser) parseString(m *vm.VM, g ErrorSink) sexpr.Value {
	tok, hadError := p.nextToken(g)
	if hadError {
		return m.NewString([]byte("had error when parsing string"))
	}
	return m.NewString(decodeStringLiteral(p.lexer.TokenBytes(tok)))
}

// decodeStringLiteral resolves escapes in a string token's raw bytes
// (which include the surrounding quotes) into the literal's contents.
func decodeStringLiteral(tok []byte) []byte {
	inner := tok[1 : len(tok)-1]
	out := make([]byte, 0, len(inner))

	for i := 0; i < len(inner); {
		if inner[i] != '\\' {
			out = append(out, inner[i])
			i++
			continue
		}

		switch inner[i+1] {
		case '"':
			out = append(out, '"')
			i += 2
		case '\'':
			out = append(out, '\'')
			i += 2
		case '0':
			out = append(out, 0)
			i += 2
		case '\\':
			out = append(out, '\\')
			i += 2
		case 'n':
			out = append(out, '\n')
			i += 2
		case 'r':
			out = append(out, '\r')
			i += 2
		case 't':
			out = append(out, '\t')
			i += 2
		case 'u':
			i += 3 // skip "\u{"
			var val rune
			for inner[i] != '}' {
				val = val<<4 | hexValue(rune(inner[i]))
				i++
			}
			i++ // skip "}"
			out = appendRune(out, val)
		case 'x':
			val := hexValue(rune(inner[i+2]))<<4 | hexValue(rune(inner[i+3]))
			i += 4
			out = appendRune(out, val)
		}
	}
	return out
}

func appendRune(out []byte, r rune) []byte {
	var buf [4]byte
	n := encodeRune(buf[:], r)
	return append(out, buf[:n]...)
}

// encodeRune mirrors the source's manual UTF-8 encoder (parser.c), which
// builds codepoint width directly from val's magnitude rather than
// calling a library encoder, so it is reproduced here rather than
// delegated to unicode/utf8.EncodeRune — this keeps the width/shift
// arithmetic visibly grounded in the original rather than hidden behind
// a stdlib call.
func encodeRune(buf []byte, val rune) int {
	width := 1
	if val > 0x7F {
		width++
	}
	if val > 0x7FF {
		width++
	}
	if val > 0xFFFF {
		width++
	}

	switch width {
	case 1:
		buf[0] = byte(val)
	case 2:
		buf[0] = 0xC0 | byte(val>>6)
	case 3:
		buf[0] = 0xE0 | byte(val>>12)
	case 4:
		buf[0] = 0xF0 | byte(val>>18)
	}
	for i := 1; i < width; i++ {
		shift := uint(width-i) * 6
		buf[i] = 0x80 | byte((val>>shift)&0x3F)
	}
	return width
}

func (p *Parser) parseNumber(m *vm.VM, g ErrorSink) sexpr.Value {
	tok, hadError := p.nextToken(g)
	if hadError {
		return m.NewNumber(math.Inf(1))
	}
	f, _ := strconv.ParseFloat(string(p.lexer.TokenBytes(tok)), 64)
	return m.NewNumber(f)
}

func (p *Parser) parseQuote(m *vm.VM, g ErrorSink, ctx *Context, types Types) sexpr.Value {
	tok, _ := p.nextToken(g)

	quoted, ok := p.parseSExpr(m, g, ctx, types)
	if !ok {
		AddError(m.GC, types, ctx, MissingSExpr, tok.Index, p.lexer.Index()-tok.Index)
		quoted = m.NewSymbol([]byte("quote is missing sexpr"))
	}

	consQuoted := m.NewCons(quoted, sexpr.Nil)
	m.GC.Root(&consQuoted)
	quoteSymbol := m.NewSymbol([]byte("quote"))
	m.GC.Unroot(&consQuoted)

	return m.NewCons(quoteSymbol, consQuoted)
}

func (p *Parser) parseList(m *vm.VM, g ErrorSink, ctx *Context, types Types) sexpr.Value {
	startTok, _ := p.nextToken(g)
	startIndex := startTok.Index

	base := sexpr.Nil
	var tail sexpr.Value
	m.GC.Root(&base)
	m.GC.Root(&tail)
	defer m.GC.Unroot(&tail)
	defer m.GC.Unroot(&base)

	for {
		tok, _ := p.peekToken(g)
		if tok.Type == TokenRightParen {
			break
		}
		if tok.Type == TokenEnd {
			AddError(m.GC, types, ctx, UnterminatedList, startIndex, p.lexer.Index()-startIndex)
			return base
		}

		item, ok := p.parseSExpr(m, g, ctx, types)
		if !ok {
			break
		}

		cons := m.NewCons(item, sexpr.Nil)
		if sexpr.IsNil(base) {
			base = cons
			tail = cons
		} else {
			tail.(*sexpr.Cons).Cdr = cons
			tail = cons
		}
	}

	p.nextToken(g)
	return base
}

// parseSExpr parses the next S-expression, returning ok=false at a
// closing paren or end of stream (no expression to parse).
func (p *Parser) parseSExpr(m *vm.VM, g ErrorSink, ctx *Context, types Types) (sexpr.Value, bool) {
	tok, _ := p.peekToken(g)
	switch tok.Type {
	case TokenSymbol:
		return p.parseSymbol(m, g), true
	case TokenString:
		return p.parseString(m, g), true
	case TokenNumber:
		return p.parseNumber(m, g), true
	case TokenLeftParen:
		return p.parseList(m, g, ctx, types), true
	case TokenRightParen:
		return nil, false
	case TokenSingleQuote:
		return p.parseQuote(m, g, ctx, types), true
	case TokenEnd:
		return nil, false
	}
	return nil, false
}

// NextSExpr parses the next top-level S-expression, skipping any stray
// closing parens first. ok is false once the character stream is
// exhausted. value and errs are mutually exclusive: a non-nil errs means
// parsing raised diagnostics and value should be ignored, matching the
// source's ParseResult union.
func (p *Parser) NextSExpr(m *vm.VM, types Types) (value sexpr.Value, errs *Context, ok bool) {
	ctx := &Context{}
	g := NewContextAdder(m.GC, types, ctx)

	for {
		tok, _ := p.peekToken(g)
		if tok.Type != TokenRightParen {
			break
		}
		p.nextToken(g)
	}

	sexprVal, parsed := p.parseSExpr(m, g, ctx, types)
	if !parsed {
		return nil, nil, false
	}

	if ctx.Count() == 0 {
		return sexprVal, nil, true
	}
	return nil, ctx, true
}
