package pricing

// TrendCategory is the discrete classification of a price movement.
type TrendCategory string

const (
	TrendMajorDrop     TrendCategory = "major_drop"
	TrendPriceDrop     TrendCategory = "price_drop"
	TrendMinorDrop     TrendCategory = "minor_drop"
	TrendStable        TrendCategory = "stable"
	TrendMinorIncrease TrendCategory = "minor_increase"
	TrendPriceIncrease TrendCategory = "price_increase"
	TrendMajorIncrease TrendCategory = "major_increase"
	TrendUnknown       TrendCategory = "unknown"
)

// Classify maps a percentage change (positive = drop) to its trend
// category. A 10% movement is still a "price" movement, not a major one;
// major starts strictly above 10. The 5% boundary itself classifies as
// price_drop/price_increase, matching the alerting threshold.
func Classify(percentage *float64) TrendCategory {
	if percentage == nil {
		return TrendUnknown
	}
	p := *percentage
	switch {
	case p > 10:
		return TrendMajorDrop
	case p >= 5:
		return TrendPriceDrop
	case p > 0:
		return TrendMinorDrop
	case p < -10:
		return TrendMajorIncrease
	case p <= -5:
		return TrendPriceIncrease
	case p < 0:
		return TrendMinorIncrease
	default:
		return TrendStable
	}
}
