package gradebook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsers(t *testing.T) {
	v, ok := parseLeadingFloat(" 9.5 pts")
	assert.True(t, ok)
	assert.Equal(t, 9.5, v)

	_, ok = parseLeadingFloat("pts")
	assert.False(t, ok)

	v, ok = parseFirstNumber("/ 12.5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = parseFirstNumber("/ ")
	assert.False(t, ok)

	v, ok = parseDisplayedPercent("C- (71.25%)")
	assert.True(t, ok)
	assert.Equal(t, 71.25, v)
}

func TestRatioPercentOrdering(t *testing.T) {
	assert.Nil(t, ratioPercent(0, 0))
	assert.True(t, math.IsInf(*ratioPercent(3, 0), 1))
	assert.Equal(t, 0.0, *ratioPercent(0, 10))
	assert.Equal(t, 25.0, *ratioPercent(5, 20))
}

func TestAggregatePercentString(t *testing.T) {
	assert.Equal(t, "LOADING", aggregatePercentString(true, true, ptr(50.0)))
	assert.Equal(t, "ERR", aggregatePercentString(false, true, ptr(50.0)))
	assert.Equal(t, "—", aggregatePercentString(false, false, nil))
	assert.Equal(t, "EC", aggregatePercentString(false, false, ptr(math.Inf(1))))
	assert.Equal(t, "91.67%", aggregatePercentString(false, false, ptr(91.66666)))
	assert.Equal(t, "Extra Credit", aggregateDetailString(false, false, ptr(math.Inf(1))))
}
