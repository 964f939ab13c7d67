package service

import (
	"github.com/shopspring/decimal"
)

// Fixed business ratios. Built from strings so the decimal value is exact.
var (
	VolumeToPriceRatio = decimal.RequireFromString("3.27")
	WeightToPriceRatio = decimal.RequireFromString("1.34")
)

// PriceScale is the number of decimal places a charged price keeps. It matches
// the scale of the price column.
const PriceScale = 5

// GoodMeasure is the priced part of a good: dimensions and weight.
type GoodMeasure struct {
	Height float64
	Width  float64
	Length float64
	Weight float64
}

// PriceResult pairs a price with the physical total it was derived from.
type PriceResult struct {
	Price decimal.Decimal
	Total float64
}

// Quote is the outcome of pricing a set of goods by both models.
type Quote struct {
	Price       decimal.Decimal
	TotalVolume float64
	TotalWeight float64
}

// PriceByVolume prices goods by their summed volume (h*w*l).
func PriceByVolume(goods []GoodMeasure) PriceResult {
	var volume float64
	for _, g := range goods {
		volume += g.Height * g.Width * g.Length
	}
	return PriceResult{
		Price: decimal.NewFromFloat(volume).Mul(VolumeToPriceRatio),
		Total: volume,
	}
}

// PriceByWeight prices goods by their summed weight.
func PriceByWeight(goods []GoodMeasure) PriceResult {
	var weight float64
	for _, g := range goods {
		weight += g.Weight
	}
	return PriceResult{
		Price: decimal.NewFromFloat(weight).Mul(WeightToPriceRatio),
		Total: weight,
	}
}

// CalculatePrice charges whichever of the two models is more expensive,
// rounded half away from zero to PriceScale places.
func CalculatePrice(goods []GoodMeasure) Quote {
	byVolume := PriceByVolume(goods)
	byWeight := PriceByWeight(goods)

	return Quote{
		Price:       decimal.Max(byVolume.Price, byWeight.Price).Round(PriceScale),
		TotalVolume: byVolume.Total,
		TotalWeight: byWeight.Total,
	}
}
