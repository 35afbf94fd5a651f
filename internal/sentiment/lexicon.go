package sentiment

// polarity values in [-1,1] for common English opinion words.
var lexicon = map[string]float64{
	"good":        0.7,
	"great":       0.8,
	"excellent":   1.0,
	"amazing":     0.6,
	"awesome":     1.0,
	"fantastic":   0.4,
	"wonderful":   1.0,
	"love":        0.5,
	"loved":       0.7,
	"like":        0.2,
	"happy":       0.8,
	"glad":        0.5,
	"best":        1.0,
	"better":      0.5,
	"nice":        0.6,
	"cool":        0.35,
	"fun":         0.3,
	"helpful":     0.5,
	"useful":      0.3,
	"thanks":      0.2,
	"thank":       0.2,
	"beautiful":   0.85,
	"positive":    0.2,
	"interesting": 0.5,
	"exciting":    0.3,
	"excited":     0.4,
	"strong":      0.4,
	"solid":       0.3,
	"safe":        0.5,
	"honest":      0.6,
	"legit":       0.3,
	"bullish":     0.3,
	"win":         0.8,
	"winning":     0.5,
	"success":     0.3,
	"perfect":     1.0,
	"bad":         -0.7,
	"terrible":    -1.0,
	"awful":       -1.0,
	"horrible":    -1.0,
	"worst":       -1.0,
	"worse":       -0.4,
	"poor":        -0.4,
	"hate":        -0.8,
	"sad":         -0.5,
	"angry":       -0.5,
	"wrong":       -0.5,
	"fake":        -0.5,
	"scam":        -0.8,
	"scammer":     -0.8,
	"rug":         -0.6,
	"rugged":      -0.7,
	"fraud":       -0.8,
	"stupid":      -0.8,
	"ugly":        -0.7,
	"boring":      -1.0,
	"broken":      -0.4,
	"lost":        -0.2,
	"loss":        -0.3,
	"dead":        -0.2,
	"crash":       -0.4,
	"bearish":     -0.3,
	"risky":       -0.3,
	"dangerous":   -0.6,
	"suspicious":  -0.3,
	"annoying":    -0.8,
	"useless":     -0.5,
	"negative":    -0.3,

	"disappointed": -0.75,
}

// multipliers applied to the next opinion word
var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.2,
	"extremely":  1.5,
	"super":      1.3,
	"so":         1.2,
	"incredibly": 1.4,
	"totally":    1.2,
	"slightly":   0.6,
	"somewhat":   0.7,
	"kinda":      0.7,
}

var negations = map[string]bool{
	"not":    true,
	"no":     true,
	"never":  true,
	"isnt":   true,
	"isn't":  true,
	"dont":   true,
	"don't":  true,
	"cant":   true,
	"can't":  true,
	"wont":   true,
	"won't":  true,
	"aint":   true,

	"nothing": true,
}
