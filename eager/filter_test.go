package eager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWherePreservesOrder(t *testing.T) {
	f := Where(func(rec map[string]any) bool {
		return rec["n"].(int) != 2
	})
	assert.Equal(t, numbers(1, 3), f(numbers(1, 2, 3)))
}

func TestComposeAppliesLeftThenRight(t *testing.T) {
	var order []string
	a := func(records []map[string]any) []map[string]any {
		order = append(order, "a")
		return records
	}
	b := func(records []map[string]any) []map[string]any {
		order = append(order, "b")
		return records
	}

	Compose(a, b)(numbers(1))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestComposeNilSides(t *testing.T) {
	f := Where(func(rec map[string]any) bool { return true })

	assert.NotNil(t, Compose(nil, f))
	assert.NotNil(t, Compose(f, nil))
	assert.Nil(t, Compose(nil, nil))
}

func TestExprFilter(t *testing.T) {
	f, err := Expr("n > 0")
	require.NoError(t, err)
	assert.Equal(t, numbers(1, 2), f(numbers(-1, 0, 1, 2)))
}

func TestExprCompileError(t *testing.T) {
	_, err := Expr("n >")
	require.Error(t, err)
}

func TestExprNonBooleanExcludes(t *testing.T) {
	f, err := Expr("n + 1")
	require.NoError(t, err)
	assert.Empty(t, f(numbers(1, 2)))
}
