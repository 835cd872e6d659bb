package hygiene

import (
	"math"
	"time"

	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/security"
)

// fullEntropyBits is the average raw entropy that scores 100 on the entropy axis.
const fullEntropyBits = 80

// RadarMetrics is the five-axis risk profile. Every axis is 0..100 and
// higher is better.
type RadarMetrics struct {
	Entropy    int `json:"entropy"`
	Reuse      int `json:"reuse"`
	Aging      int `json:"aging"`
	BreachRisk int `json:"breachRisk"`
	Health     int `json:"health"`
}

// CalculateRadarMetrics computes the radar profile. An empty vault scores
// 100 on every axis.
func CalculateRadarMetrics(items []credential.Item, reuse ReuseMap, now time.Time) RadarMetrics {
	if len(items) == 0 {
		return RadarMetrics{Entropy: 100, Reuse: 100, Aging: 100, BreachRisk: 100, Health: 100}
	}
	total := float64(len(items))

	sum := 0
	common := 0
	for _, item := range items {
		sum += security.CalculateEntropy(item.Password)
		if _, ok := security.ContainsCommonWord(item.Password); ok {
			common++
		}
	}
	avg := float64(sum) / total
	old := len(OlderThan(items, RotationAge, now))

	return RadarMetrics{
		Entropy:    int(math.Round(math.Min(100, avg/fullEntropyBits*100))),
		Reuse:      inversePercent(len(reuse), total),
		Aging:      inversePercent(old, total),
		BreachRisk: inversePercent(common, total),
		Health:     CalculateHealthScore(items, reuse, now),
	}
}

// inversePercent returns round(max(0, 100 - n/total*100)).
func inversePercent(n int, total float64) int {
	return int(math.Round(math.Max(0, 100-float64(n)/total*100)))
}
