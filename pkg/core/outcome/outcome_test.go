package outcome

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfAndRoot(t *testing.T) {
	inner := New(NotFound, "Inventory", "no line item")
	outer := Wrap(OperandUnavailable, "Quick Ratio", inner)
	wrapped := fmt.Errorf("computing: %w", outer)

	k, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, OperandUnavailable, k)
	assert.True(t, Is(wrapped, OperandUnavailable))
	assert.False(t, Is(wrapped, NotFound))
	assert.Same(t, inner, Root(wrapped))
	assert.True(t, errors.Is(outer, inner))
}

func TestPlainErrorsAreNotUnavailable(t *testing.T) {
	err := errors.New("connection reset")
	assert.False(t, IsUnavailable(err))
	assert.Nil(t, Root(err))
	assert.Nil(t, Describe(err))
	assert.Nil(t, Describe(nil))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(OperandUnavailable, "EBITDA", New(NotFound, "EBIT", "missing"))
	assert.Equal(t, "operand_unavailable [EBITDA]: not_found [EBIT]: missing", err.Error())
}

func TestDescribeJSON(t *testing.T) {
	err := Wrap(OperandUnavailable, "EBITDA", New(NotFound, "EBIT", "missing"))
	b, jerr := json.Marshal(Describe(err))
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"kind":"not_found","metric":"EBIT","detail":"operand_unavailable [EBITDA]: not_found [EBIT]: missing"}`, string(b))
}

func TestUnknownKindString(t *testing.T) {
	assert.Equal(t, "kind(99)", Kind(99).String())
}
