package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/golisp/golisp/internal/gc"
	"github.com/golisp/golisp/internal/parse"
)

func TestContextChaining(t *testing.T) {
	g := gc.New(4096)
	types := parse.Register(g)

	ctx := &parse.Context{}
	parse.AddError(g, types, ctx, parse.InvalidEscape, 0, 1)
	parse.AddError(g, types, ctx, parse.InvalidUTF8, 1, 2)
	parse.AddError(g, types, ctx, parse.InvalidSuffix, 2, 3)

	errs := ctx.Errors()
	if assert.Len(t, errs, 3) {
		assert.Equal(t, parse.InvalidEscape, errs[0].Kind)
		assert.Equal(t, parse.InvalidUTF8, errs[1].Kind)
		assert.Equal(t, parse.InvalidSuffix, errs[2].Kind)
	}
}

func TestContextCounting(t *testing.T) {
	g := gc.New(4096)
	types := parse.Register(g)

	ctx := &parse.Context{}
	assert.Equal(t, 0, ctx.Count())

	parse.AddError(g, types, ctx, parse.InvalidEscape, 0, 1)
	parse.AddError(g, types, ctx, parse.InvalidUTF8, 1, 2)
	parse.AddError(g, types, ctx, parse.InvalidSuffix, 2, 3)

	assert.Equal(t, 3, ctx.Count())
}
