package core

import "github.com/gridforma/massing/model"

// Summary holds height statistics for a batch of converted parts.
type Summary struct {
	Count      int     `json:"count"`
	MeanHeight float64 `json:"mean_height"`
	MinHeight  float64 `json:"min_height"`
	MaxHeight  float64 `json:"max_height"`
}

// Summarize reduces a set of height results to count/mean/min/max in a single
// pass. An empty input yields the zero Summary.
func Summarize(results []model.HeightResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	sum := 0.0
	min, max := results[0].Height, results[0].Height
	for _, r := range results {
		sum += r.Height
		if r.Height < min {
			min = r.Height
		}
		if r.Height > max {
			max = r.Height
		}
	}
	return Summary{
		Count:      len(results),
		MeanHeight: sum / float64(len(results)),
		MinHeight:  min,
		MaxHeight:  max,
	}
}
