package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		pct  float64
		want TrendCategory
	}{
		{15.0, TrendMajorDrop},
		{10.0001, TrendMajorDrop},
		{10.0, TrendPriceDrop},
		{7.5, TrendPriceDrop},
		{5.0, TrendPriceDrop},
		{4.999, TrendMinorDrop},
		{0.1, TrendMinorDrop},
		{0.0, TrendStable},
		{-0.1, TrendMinorIncrease},
		{-4.999, TrendMinorIncrease},
		{-5.0, TrendPriceIncrease},
		{-10.0, TrendPriceIncrease},
		{-10.0001, TrendMajorIncrease},
		{-15.0, TrendMajorIncrease},
	}
	for _, tt := range tests {
		p := tt.pct
		assert.Equal(t, tt.want, Classify(&p), "pct %v", tt.pct)
	}
}

func TestClassifyNilIsUnknown(t *testing.T) {
	assert.Equal(t, TrendUnknown, Classify(nil))
}
