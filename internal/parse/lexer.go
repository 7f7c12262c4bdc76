package parse

import (
	"unicode/utf8"

	"github.com/golisp/golisp/internal/gc"
)

// TokenType enumerates the lexer's token kinds.
type TokenType int

const (
	TokenSymbol TokenType = iota
	TokenString
	TokenNumber
	TokenLeftParen
	TokenRightParen
	TokenSingleQuote
	TokenEnd
)

// Token is a lexeme's type plus its byte range in the lexer's input.
type Token struct {
	Type   TokenType
	Index  int
	Length int
}

// Lexer tokenizes a byte stream that may grow incrementally (for a REPL
// reading line by line) via More.
type Lexer struct {
	input []byte
	index int

	// More supplies additional input when the lexer runs past what's
	// buffered. It returns ok=false once no further input is available
	// (file/line exhausted); once false it is never called again.
	More func() (more []byte, ok bool)

	exhausted bool
}

// NewLexer wraps a fixed, complete input buffer (no further input will
// ever be available).
func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, exhausted: true}
}

// NewStreamingLexer wraps an input buffer that can grow via more,
// matching the source's file-backed lexer that re-prompts for another
// line when a token runs off the end of what has been read so far.
func NewStreamingLexer(initial []byte, more func() ([]byte, bool)) *Lexer {
	return &Lexer{input: initial, More: more}
}

// Index returns the lexer's current byte offset into its input.
func (l *Lexer) Index() int { return l.index }

// TokenBytes returns the raw bytes spanned by tok.
func (l *Lexer) TokenBytes(tok Token) []byte {
	return l.input[tok.Index : tok.Index+tok.Length]
}

func (l *Lexer) fetchMore() bool {
	if l.exhausted || l.More == nil {
		return false
	}
	more, ok := l.More()
	if !ok || len(more) == 0 {
		l.exhausted = true
		return false
	}
	l.input = append(l.input, more...)
	return true
}

func (l *Lexer) peekByte(n int) (byte, bool) {
	idx := l.index + n
	for idx >= len(l.input) {
		if !l.fetchMore() {
			return 0, false
		}
	}
	return l.input[idx], true
}

// peekRuneAt decodes the codepoint starting offset bytes after the
// cursor, fetching more input as needed. ok is false at end of stream;
// utf8Err is true when the bytes present do not form a valid codepoint
// (including an incomplete sequence truncated by end of stream).
func (l *Lexer) peekRuneAt(offset int) (r rune, size int, ok bool, utf8Err bool) {
	b0, has := l.peekByte(offset)
	if !has {
		return 0, 0, false, false
	}
	if b0 < utf8.RuneSelf {
		return rune(b0), 1, true, false
	}

	buf := []byte{b0}
	for len(buf) < utf8.UTFMax {
		b, has := l.peekByte(offset + len(buf))
		if !has {
			break
		}
		buf = append(buf, b)
	}

	r, size = utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return 0, 0, false, true
	}
	if r > 0x10FFFF || (0xD800 <= r && r <= 0xDFFF) {
		return 0, 0, false, true
	}
	return r, size, true, false
}

func (l *Lexer) peekRune() (rune, bool, bool) {
	r, _, ok, utf8Err := l.peekRuneAt(0)
	return r, ok, utf8Err
}

func (l *Lexer) nextRune() (rune, bool, bool) {
	r, size, ok, utf8Err := l.peekRuneAt(0)
	if ok {
		l.index += size
	}
	return r, ok, utf8Err
}

func isWhitespace(c rune) bool {
	return c == 0x09 || c == 0x0A || c == 0x0D || c == 0x20
}

func isDigit(c rune) bool { return '0' <= c && c <= '9' }

func isNumericContinue(c rune) bool { return isDigit(c) || c == '.' }

func isNumericStart(c rune) bool { return isNumericContinue(c) || c == '+' || c == '-' }

func isHexDigit(c rune) bool {
	return isDigit(c) || ('A' <= c && c <= 'F') || ('a' <= c && c <= 'f')
}

// skipInvalidUTF8 advances past a maximal run of bytes that cannot form
// a valid codepoint, matching lexer_skip_invalid_utf8.
func (l *Lexer) skipInvalidUTF8() {
	for {
		_, _, ok, utf8Err := l.peekRuneAt(0)
		if ok || !utf8Err {
			return
		}
		l.index++
	}
}

func (l *Lexer) handleUTF8Error(g ErrorSink) {
	start := l.index
	l.skipInvalidUTF8()
	g.add(InvalidUTF8, start, l.index-start)
}

// ErrorSink lets the lexer append diagnostics and check how many have
// accumulated so far. NewContextAdder binds one to a collector and the
// Context it should append to.
type ErrorSink interface {
	add(kind ErrorKind, index, length int)
	count() int
}

type contextAdder struct {
	g     *gc.GC
	types Types
	ctx   *Context
}

// NewContextAdder binds g/types/ctx into the ErrorSink the lexer and
// parser append diagnostics through.
func NewContextAdder(g *gc.GC, types Types, ctx *Context) ErrorSink {
	return contextAdder{g: g, types: types, ctx: ctx}
}

func (c contextAdder) add(kind ErrorKind, index, length int) {
	AddError(c.g, c.types, c.ctx, kind, index, length)
}

func (c contextAdder) count() int { return c.ctx.Count() }

func (l *Lexer) handleEscape(g ErrorSink) {
	escapeStart := l.index - 1
	c, ok, utf8Err := l.nextRune()
	if !ok {
		if utf8Err {
			l.handleUTF8Error(g)
		}
		g.add(InvalidEscape, escapeStart, l.index-escapeStart)
		return
	}

	switch c {
	case '"', '\'', '0', '\\', 'n', 'r', 't':
		return
	case 'u':
		c, ok, utf8Err = l.peekRune()
		if !ok {
			if utf8Err {
				l.handleUTF8Error(g)
			}
			g.add(InvalidEscape, escapeStart, l.index-escapeStart)
			return
		}
		if c != '{' {
			g.add(InvalidEscape, escapeStart, (l.index+1)-escapeStart)
			return
		}
		l.nextRune()

		var val rune
		var digits int
		for {
			c, ok, utf8Err = l.peekRune()
			if !ok {
				if utf8Err {
					l.handleUTF8Error(g)
				}
				g.add(InvalidEscape, escapeStart, l.index-escapeStart)
				return
			}
			if c == '}' {
				l.nextRune()
				break
			}
			if !isHexDigit(c) {
				g.add(InvalidEscape, escapeStart, (l.index+1)-escapeStart)
				return
			}
			digits++
			val = val<<4 | hexValue(c)
			l.nextRune()
		}

		if digits > 6 || val > 0x10FFFF || (0xD800 <= val && val <= 0xDFFF) {
			g.add(InvalidEscape, escapeStart, l.index-escapeStart)
		}
		return
	case 'x':
		c, ok, utf8Err = l.peekRune()
		if !ok {
			if utf8Err {
				l.handleUTF8Error(g)
			}
			g.add(InvalidEscape, escapeStart, l.index-escapeStart)
			return
		}
		if !isHexDigit(c) {
			g.add(InvalidEscape, escapeStart, (l.index+1)-escapeStart)
			return
		}
		l.nextRune()

		c, ok, utf8Err = l.peekRune()
		if !ok {
			if utf8Err {
				l.handleUTF8Error(g)
			}
			g.add(InvalidEscape, escapeStart, l.index-escapeStart)
			return
		}
		if !isHexDigit(c) {
			g.add(InvalidEscape, escapeStart, (l.index+1)-escapeStart)
			return
		}
		l.nextRune()
		return
	default:
		g.add(InvalidEscape, escapeStart, l.index-escapeStart)
		return
	}
}

func hexValue(c rune) rune {
	switch {
	case isDigit(c):
		return c - '0'
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// NextToken scans and returns the next token, reporting true in hadError
// if scanning it raised any diagnostic in ctx.
func (l *Lexer) NextToken(g ErrorSink) (tok Token, hadError bool) {
	errCountBefore := g.count()

restart:
	tok.Index = l.index
	c, ok, utf8Err := l.nextRune()
	if !ok {
		if !utf8Err {
			tok.Type = TokenEnd
			goto exit
		}

		l.handleUTF8Error(g)
		for {
			c, ok, utf8Err = l.peekRune()
			if !ok {
				break
			}
			if isWhitespace(c) || c == '(' || c == ')' {
				break
			}
			l.nextRune()
		}
		if utf8Err {
			goto restart
		}
		tok.Type = TokenSymbol
		goto exit
	}

	if isWhitespace(c) {
		for {
			c, ok, _ = l.peekRune()
			if !ok || !isWhitespace(c) {
				break
			}
			l.nextRune()
		}
		goto restart
	} else if c == ';' {
		for {
			for {
				c, ok, utf8Err = l.peekRune()
				if !ok || c == '\n' {
					break
				}
				l.nextRune()
			}
			if utf8Err {
				l.handleUTF8Error(g)
				continue
			}
			break
		}
		goto restart
	}

	switch c {
	case '"':
		for {
			c, ok, utf8Err = l.peekRune()
			if !ok {
				if utf8Err {
					l.handleUTF8Error(g)
					continue
				}
				g.add(UnterminatedString, tok.Index, l.index-tok.Index)
				tok.Type = TokenString
				goto exit
			}
			l.nextRune()
			if c == '\\' {
				l.handleEscape(g)
			}
			if c == '"' {
				break
			}
		}

		tok.Type = TokenString
		if c, ok, _ = l.peekRune(); ok {
			if !isWhitespace(c) && c != '(' && c != ')' {
				g.add(InvalidSuffix, tok.Index, l.index-tok.Index)
			}
		}
		goto exit
	case '\'':
		tok.Type = TokenSingleQuote
		goto exit
	case '(':
		tok.Type = TokenLeftParen
		goto exit
	case ')':
		tok.Type = TokenRightParen
		goto exit
	default:
		dots := 0
		if c == '.' {
			dots = 1
		}
		validNumber := isNumericStart(c)
		hasDigit := isDigit(c)

		for {
			for {
				c, ok, utf8Err = l.peekRune()
				if !ok {
					break
				}
				if isWhitespace(c) || c == '(' || c == ')' {
					break
				}
				if c == '.' {
					dots++
				}
				validNumber = validNumber && isNumericContinue(c)
				hasDigit = hasDigit || isDigit(c)
				l.nextRune()
			}

			if !utf8Err {
				break
			}
			l.handleUTF8Error(g)
			validNumber = false
		}

		if validNumber && dots <= 1 && hasDigit {
			tok.Type = TokenNumber
		} else {
			tok.Type = TokenSymbol
		}
		goto exit
	}

exit:
	hadError = g.count() != errCountBefore
	tok.Length = l.index - tok.Index
	return tok, hadError
}
