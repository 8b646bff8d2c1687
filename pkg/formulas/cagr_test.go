package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCAGR(t *testing.T) {
	assert.InDelta(t, 0.20, CalculateCAGR(10000, 12000, 365.25), 1e-9)
	assert.InDelta(t, 0.44, CalculateCAGR(10000, 14400, 730.5), 1e-9)
}

func TestCalculateCAGR_Guards(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCAGR(0, 12000, 365))
	assert.Equal(t, 0.0, CalculateCAGR(-5, 12000, 365))
	assert.Equal(t, 0.0, CalculateCAGR(10000, 12000, 0))
	assert.Equal(t, -1.0, CalculateCAGR(10000, 0, 365))
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.2, TotalReturn(10000, 12000), 1e-12)
	assert.InDelta(t, -0.5, TotalReturn(100, 50), 1e-12)
	assert.Equal(t, 0.0, TotalReturn(0, 50))
}
