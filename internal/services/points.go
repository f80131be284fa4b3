package services

import (
	"math"

	"github.com/AnshRaj112/econex-backend/internal/models"
)

const (
	lightweightPointsPerKg = 10
	heavyweightPointsPerKg = 20
)

// CalculatePoints is the reward for a collected weight in kg, rounded to the
// nearest whole point.
func CalculatePoints(t models.WasteType, weight float64) int {
	switch t {
	case models.WasteLightweight:
		return int(math.Round(weight * lightweightPointsPerKg))
	case models.WasteHeavyweight:
		return int(math.Round(weight * heavyweightPointsPerKg))
	}
	return 0
}
