package decoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedIntRoundTrip(t *testing.T) {
	vals := []float32{0, 1, -1, 123.456, -123.456, 1e10, -1e10, math.SmallestNonzeroFloat32}
	for _, v := range vals {
		got := OrderedIntToFloat(FloatToOrderedInt(v))
		assert.Equal(t, v, got, "round trip %v", v)
	}
}

// Ordering must be preserved by the mapping; the pruning atomics rely on
// integer comparisons agreeing with float comparisons.
func TestOrderedIntPreservesOrder(t *testing.T) {
	pairs := [][2]float32{
		{1, 2}, {-2, -1}, {-1, 1}, {0, 1}, {-1, 0}, {100.5, 100.6},
	}
	for _, p := range pairs {
		a, b := FloatToOrderedInt(p[0]), FloatToOrderedInt(p[1])
		assert.Less(t, a, b, "FloatToOrderedInt(%v) should be < FloatToOrderedInt(%v)", p[0], p[1])
	}
}

func TestMaxOrderedIntIsLargest(t *testing.T) {
	for _, v := range []float32{0, 1e30, -1e30, 3.4e38} {
		assert.LessOrEqual(t, FloatToOrderedInt(v), MaxOrderedInt, "FloatToOrderedInt(%v) exceeds MaxOrderedInt", v)
	}
}
