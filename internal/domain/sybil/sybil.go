// Package sybil scores how organic an interaction pattern looks against a
// profile's history. It is a standalone primitive; no transition calls it.
package sybil

import "github.com/okian/realmrep/internal/domain/fixedpoint"

// Component bounds and blend weights (percent).
const (
	MaxScore uint64 = 1000

	legitimacyFloor uint64 = 300
	legitimacySpan  uint64 = 400

	consistencyMin     uint64 = 300
	consistencyMax     uint64 = 700
	consistencyNoData  uint64 = 500
	varianceDivisor    uint64 = 100
	anomalyLow         uint64 = 700
	anomalyMid         uint64 = 600
	anomalyHigh        uint64 = 450
	anomalyNoData             = anomalyMid
	expectedMultiplier uint64 = 10

	legitimacyWeight  uint64 = 40
	consistencyWeight uint64 = 35
	anomalyWeight     uint64 = 25
)

// Estimate is a blended score with its components.
type Estimate struct {
	Legitimacy  uint64 `json:"legitimacy"`
	Consistency uint64 `json:"consistency"`
	Anomaly     uint64 `json:"anomaly"`
	Score       uint64 `json:"score"`
}

// Score blends legitimacy, consistency and anomaly into [0, 1000]:
// 0.40*legitimacy + 0.35*consistency + 0.25*anomaly.
func Score(pattern []byte, history []uint64) Estimate {
	e := Estimate{
		Legitimacy:  legitimacy(pattern),
		Consistency: consistency(history),
		Anomaly:     anomaly(pattern, history),
	}
	blend := fixedpoint.SatAdd(
		fixedpoint.SatAdd(e.Legitimacy*legitimacyWeight, e.Consistency*consistencyWeight),
		e.Anomaly*anomalyWeight,
	) / fixedpoint.Scale
	e.Score = min(blend, MaxScore)
	return e
}

// legitimacy folds the pattern bytes with XOR and maps the result into
// [300, 700).
func legitimacy(pattern []byte) uint64 {
	var x byte
	for _, b := range pattern {
		x ^= b
	}
	return legitimacyFloor + uint64(x)*legitimacySpan/256
}

// consistency is clamp(700 - variance/100, 300, 700) over the history.
func consistency(history []uint64) uint64 {
	if len(history) == 0 {
		return consistencyNoData
	}
	v := variance(history) / varianceDivisor
	if v >= consistencyMax-consistencyMin {
		return consistencyMin
	}
	return consistencyMax - v
}

// anomaly compares the pattern byte sum with ten times the historical mean.
func anomaly(pattern []byte, history []uint64) uint64 {
	if len(history) == 0 {
		return anomalyNoData
	}
	var sum uint64
	for _, b := range pattern {
		sum += uint64(b)
	}
	expected := fixedpoint.SatMul(mean(history), expectedMultiplier)

	var dev uint64
	if sum > expected {
		dev = sum - expected
	} else {
		dev = expected - sum
	}

	switch {
	case fixedpoint.SatMul(dev, 100) <= fixedpoint.SatMul(expected, 20):
		return anomalyLow
	case fixedpoint.SatMul(dev, 100) <= fixedpoint.SatMul(expected, 50):
		return anomalyMid
	default:
		return anomalyHigh
	}
}

func mean(xs []uint64) uint64 {
	var sum uint64
	for _, x := range xs {
		sum = fixedpoint.SatAdd(sum, x)
	}
	return sum / uint64(len(xs))
}

// variance is the integer population variance, saturating.
func variance(xs []uint64) uint64 {
	m := mean(xs)
	var acc uint64
	for _, x := range xs {
		var d uint64
		if x > m {
			d = x - m
		} else {
			d = m - x
		}
		acc = fixedpoint.SatAdd(acc, fixedpoint.SatMul(d, d))
	}
	return acc / uint64(len(xs))
}
