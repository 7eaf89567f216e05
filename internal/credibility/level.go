package credibility

// Level is the discrete credibility band derived from a 0-100 score.
type Level string

const (
	VeryLow  Level = "Very Low"
	Low      Level = "Low"
	Medium   Level = "Medium"
	High     Level = "High"
	VeryHigh Level = "Very High"
)

const (
	MinScore = 0
	MaxScore = 100
)

// bands is ordered from the highest threshold down; the first match wins.
var bands = []struct {
	min   int
	level Level
}{
	{80, VeryHigh},
	{60, High},
	{40, Medium},
	{20, Low},
}

// ValidScore reports whether score is inside [MinScore, MaxScore].
// Callers must check it before calling Classify.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Classify maps a score to its credibility level.
func Classify(score int) Level {
	for _, b := range bands {
		if score >= b.min {
			return b.level
		}
	}
	return VeryLow
}

// Rank returns the ordinal position of the level, VeryLow being 0.
// Unknown levels rank -1.
func (l Level) Rank() int {
	switch l {
	case VeryLow:
		return 0
	case Low:
		return 1
	case Medium:
		return 2
	case High:
		return 3
	case VeryHigh:
		return 4
	}
	return -1
}

func (l Level) String() string {
	return string(l)
}
