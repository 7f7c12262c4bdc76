package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golisp/golisp/internal/parse"
	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

func newParserVM(t *testing.T) (*vm.VM, parse.Types) {
	t.Helper()
	m := vm.New()
	types := parse.Register(m.GC)
	return m, types
}

func TestParseNil(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("()"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.True(t, sexpr.IsNil(val))

	_, _, ok = p.NextSExpr(m, types)
	assert.False(t, ok)
}

func TestParseDoubleNil(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("() ()"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.True(t, sexpr.IsNil(val))

	val, errs, ok = p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.True(t, sexpr.IsNil(val))

	_, _, ok = p.NextSExpr(m, types)
	assert.False(t, ok)
}

func TestParseBasicSymbols(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("news nil? string?"))

	for i := 0; i < 3; i++ {
		val, errs, ok := p.NextSExpr(m, types)
		require.True(t, ok)
		require.Nil(t, errs)
		assert.Equal(t, sexpr.KindSymbol, sexpr.KindOf(val))
	}

	_, _, ok := p.NextSExpr(m, types)
	assert.False(t, ok)
}

func TestParseSimpleList(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("(news)"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	require.Equal(t, sexpr.KindCons, sexpr.KindOf(val))
	assert.Equal(t, "(news)", sexpr.ToString(val))

	_, _, ok = p.NextSExpr(m, types)
	assert.False(t, ok)
}

func TestParseSkipRightParens(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte(")))))) (news)"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	require.Equal(t, sexpr.KindCons, sexpr.KindOf(val))

	_, _, ok = p.NextSExpr(m, types)
	assert.False(t, ok)
}

func TestParseQuote(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("'foo"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.Equal(t, "(quote foo)", sexpr.ToString(val))
}

func TestParseNestedList(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("(1 (2 3) 4)"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.Equal(t, "(1 (2 3) 4)", sexpr.ToString(val))
}

func TestParseUnterminatedList(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("(1 2"))

	_, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.NotNil(t, errs)
	if assert.Equal(t, 1, errs.Count()) {
		assert.Equal(t, parse.UnterminatedList, errs.Errors()[0].Kind)
	}
}

func TestParseStringEscapes(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte(`"a\nb\tc\"d"`))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)
	assert.Equal(t, "a\nb\tc\"d", string(sexpr.StringBytes(val)))
}

func TestParseSurvivesCollectionDuringList(t *testing.T) {
	m, types := newParserVM(t)
	p := parse.NewParser([]byte("(1 2 3 4 5 6 7 8 9 10)"))

	val, errs, ok := p.NextSExpr(m, types)
	require.True(t, ok)
	require.Nil(t, errs)

	m.GC.Root(&val)
	defer m.GC.Unroot(&val)
	m.GC.Collect()

	assert.Equal(t, "(1 2 3 4 5 6 7 8 9 10)", sexpr.ToString(val))
}
