package models

import (
	"math"
	"sort"
)

// EstimateUnknown is the reserved "?" card value meaning the participant passes.
const EstimateUnknown float64 = -1

// Deck is the set of numeric card values a participant may play, in display order.
var Deck = []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}

// ValidEstimate reports whether v is a deck value or the unknown sentinel.
func ValidEstimate(v float64) bool {
	if v == EstimateUnknown {
		return true
	}
	for _, d := range Deck {
		if v == d {
			return true
		}
	}
	return false
}

// EstimationResult is a single submitted estimate as exposed in a snapshot.
type EstimationResult struct {
	ParticipantID   string  `json:"participantId"`
	ParticipantName string  `json:"participantName"`
	Estimate        float64 `json:"estimate"`
}

// Stats aggregates the known (non-"?") estimates of a round.
type Stats struct {
	Count     int     `json:"count"`
	Unknown   int     `json:"unknown"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Average   float64 `json:"average"`
	Median    float64 `json:"median"`
	Consensus bool    `json:"consensus"`
}

// ComputeStats returns nil when no known estimates were submitted.
// Average is rounded to one decimal place.
func ComputeStats(results []EstimationResult) *Stats {
	var values []float64
	unknown := 0
	for _, r := range results {
		if r.Estimate == EstimateUnknown {
			unknown++
			continue
		}
		values = append(values, r.Estimate)
	}
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	n := len(values)
	median := values[n/2]
	if n%2 == 0 {
		median = (values[n/2-1] + values[n/2]) / 2
	}

	return &Stats{
		Count:     n,
		Unknown:   unknown,
		Min:       values[0],
		Max:       values[n-1],
		Average:   math.Round(sum/float64(n)*10) / 10,
		Median:    median,
		Consensus: values[0] == values[n-1],
	}
}
