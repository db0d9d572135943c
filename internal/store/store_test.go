package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunningAverage(t *testing.T) {
	// newAvg = round((oldAvg*oldCount + newGas) / (oldCount+1))
	assert.Equal(t, uint64(100), runningAverage(0, 0, 100))
	assert.Equal(t, uint64(150), runningAverage(100, 1, 200))
	assert.Equal(t, uint64(67), runningAverage(50, 2, 100)) // (100+100)/3 = 66.67 -> rounds to 67
}

func TestCompareBigDecimal(t *testing.T) {
	assert.Equal(t, 0, compareBigDecimal("100", "100"))
	assert.Equal(t, 1, compareBigDecimal("200", "100"))
	assert.Equal(t, -1, compareBigDecimal("100", "200"))
	assert.Equal(t, 1, compareBigDecimal("100000000000000000000", "99999999999999999999"))
	assert.Equal(t, 0, compareBigDecimal("007", "7"))
}
