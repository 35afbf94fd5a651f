// Package sentiment estimates a coarse polarity for short social posts.
package sentiment

import (
	"math"

	"rugguard/internal/util"
)

// Label names for polarity buckets.
const (
	Negative = "negative"
	Neutral  = "neutral"
	Positive = "positive"
)

// DeadZone is the half-width around zero that still counts as neutral.
const DeadZone = 0.1

// negation reaches back this many tokens
const negationWindow = 2

// Polarity returns the mean polarity of opinion words in text, in [-1,1].
// Text without opinion words scores 0.
func Polarity(text string) float64 {
	tokens := util.Tokenize(text)
	var sum float64
	var n int
	for i, tok := range tokens {
		v, ok := lexicon[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := intensifiers[tokens[i-1]]; ok {
				v *= m
			}
		}
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			if negations[tokens[j]] {
				v *= -0.5
				break
			}
		}
		sum += clamp(v)
		n++
	}
	if n == 0 {
		return 0
	}
	return clamp(sum / float64(n))
}

// Label buckets a polarity by sign with a neutral dead zone.
func Label(p float64) string {
	switch {
	case p > DeadZone:
		return Positive
	case p < -DeadZone:
		return Negative
	default:
		return Neutral
	}
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
