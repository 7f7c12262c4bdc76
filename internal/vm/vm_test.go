package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

func TestEnvSetLookupBasic(t *testing.T) {
	m := vm.New()

	symbol := m.NewSymbol([]byte("test"))
	value := m.NewNumber(1.0)

	m.Set(&m.Vars, symbol, value)

	got, found := vm.Lookup(&m.Vars, symbol)
	require.True(t, found)
	assert.Equal(t, 1.0, sexpr.NumberValue(got))
}

func TestEnvSetLookupOverride(t *testing.T) {
	m := vm.New()

	symbol := m.NewSymbol([]byte("test"))
	m.Set(&m.Vars, symbol, m.NewNumber(1.0))

	got, found := vm.Lookup(&m.Vars, symbol)
	require.True(t, found)
	assert.Equal(t, 1.0, sexpr.NumberValue(got))

	m.Set(&m.Vars, symbol, m.NewNumber(2.0))

	got, found = vm.Lookup(&m.Vars, symbol)
	require.True(t, found)
	assert.Equal(t, 2.0, sexpr.NumberValue(got))
}

func TestEnvSetLookupMultiSupport(t *testing.T) {
	m := vm.New()

	test := m.NewSymbol([]byte("test"))
	m.Set(&m.Vars, test, m.NewNumber(1.0))

	got, found := vm.Lookup(&m.Vars, test)
	require.True(t, found)
	assert.Equal(t, 1.0, sexpr.NumberValue(got))

	toads := m.NewSymbol([]byte("toads"))
	m.Set(&m.Vars, toads, m.NewNumber(2.0))

	got, found = vm.Lookup(&m.Vars, toads)
	require.True(t, found)
	assert.Equal(t, 2.0, sexpr.NumberValue(got))

	got, found = vm.Lookup(&m.Vars, m.NewSymbol([]byte("test")))
	require.True(t, found)
	assert.Equal(t, 1.0, sexpr.NumberValue(got))
}

func TestEnvLookupMissing(t *testing.T) {
	m := vm.New()
	_, found := vm.Lookup(&m.Vars, m.NewSymbol([]byte("nope")))
	assert.False(t, found)
}

func TestFuncsAndVarsAreIndependent(t *testing.T) {
	m := vm.New()
	symbol := m.NewSymbol([]byte("f"))
	m.Set(&m.Funcs, symbol, m.NewNumber(9.0))

	_, found := vm.Lookup(&m.Vars, symbol)
	assert.False(t, found)

	got, found := vm.Lookup(&m.Funcs, symbol)
	require.True(t, found)
	assert.Equal(t, 9.0, sexpr.NumberValue(got))
}
