package game

import "math"

// LevelScore computes a level's score from hits and attempts.
//
// accuracy rewards completeness (up to 1000 points for finding every
// bug); efficiency rewards precision (up to 500 points for needing few
// clicks). Clicking empty cells dilutes the efficiency term but never
// reduces the accuracy term. The result is floored at zero.
func LevelScore(bugsFound, totalBugs, totalClicks int) int {
	if totalBugs <= 0 {
		return 0
	}
	clicks := totalClicks
	if clicks < 1 {
		clicks = 1
	}
	accuracy := float64(bugsFound) / float64(totalBugs)
	efficiency := float64(bugsFound) / float64(clicks)

	score := int(math.Floor(accuracy*1000 + efficiency*500))
	if score < 0 {
		score = 0
	}
	return score
}

// Aggregate summarizes completed levels alongside the running total.
type Aggregate struct {
	TotalScore int           `json:"totalScore"`
	BugsFound  int           `json:"bugsFound"`
	TotalBugs  int           `json:"totalBugs"`
	Accuracy   float64       `json:"accuracy"` // percent, 2 decimal places
	Levels     []LevelResult `json:"levels"`
}

// AggregateStats sums hits and targets across levels and derives overall
// accuracy as a percentage rounded to two decimal places.
func AggregateStats(totalScore int, levels []LevelResult) Aggregate {
	agg := Aggregate{
		TotalScore: totalScore,
		Levels:     append([]LevelResult(nil), levels...),
	}
	for _, l := range levels {
		agg.BugsFound += l.BugsFound
		agg.TotalBugs += l.TotalBugs
	}
	if agg.TotalBugs > 0 {
		pct := float64(agg.BugsFound) / float64(agg.TotalBugs) * 100
		agg.Accuracy = math.Round(pct*100) / 100
	}
	return agg
}
