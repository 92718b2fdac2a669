package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

func TestValidatorChainCollectsAllFailures(t *testing.T) {
	type pair struct {
		name  string
		limit int
	}
	chain := NewValidatorChain(
		func(p pair) ValidationResult { return Required("name", p.name) },
	).Add(func(p pair) ValidationResult { return NonNegative("limit", p.limit) })

	assert.True(t, chain.Validate(pair{name: "x", limit: 1}).OK())

	res := chain.Validate(pair{name: " ", limit: -2})
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "name: must not be empty", res.Errors[0].Error())
	assert.Equal(t, "range", res.Errors[1].Code)

	err := res.ToError()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "limit: must not be negative, got -2")
}

func TestValidResultHasNoError(t *testing.T) {
	assert.NoError(t, Valid().Combine(Valid()).ToError())
	assert.Equal(t, "plain", FieldError{Message: "plain"}.Error())
}
