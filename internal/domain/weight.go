package domain

import "math"

// DefaultVolumetricDivisor converts cubic centimetres to volumetric kilograms
const DefaultVolumetricDivisor = 5000.0

// Dimensions holds package box dimensions in centimetres
type Dimensions struct {
	LengthCm  float64 `bson:"lengthCm" json:"lengthCm"`
	BreadthCm float64 `bson:"breadthCm" json:"breadthCm"`
	HeightCm  float64 `bson:"heightCm" json:"heightCm"`
}

// IsKnown reports whether every dimension is set
func (d Dimensions) IsKnown() bool {
	return d.LengthCm > 0 && d.BreadthCm > 0 && d.HeightCm > 0
}

// VolumetricWeightKg returns l*b*h/5000, or 0 when any dimension is missing.
// A missing dimension means the size is unknown, not that the box is empty.
func VolumetricWeightKg(lengthCm, breadthCm, heightCm float64) float64 {
	return volumetricWeightKg(lengthCm, breadthCm, heightCm, DefaultVolumetricDivisor)
}

// BillableWeightKg returns the larger of actual and volumetric weight
func BillableWeightKg(actualWeightKg, volumetricWeightKg float64) float64 {
	return math.Max(math.Max(actualWeightKg, volumetricWeightKg), 0)
}

func volumetricWeightKg(lengthCm, breadthCm, heightCm, divisor float64) float64 {
	if lengthCm <= 0 || breadthCm <= 0 || heightCm <= 0 || divisor <= 0 {
		return 0
	}
	return lengthCm * breadthCm * heightCm / divisor
}
