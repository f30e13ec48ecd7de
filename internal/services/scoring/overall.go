package scoring

import (
	"math"

	"sitescope/internal/domain"
)

// Overall combines the categories that have data. Weights of the contributing
// categories are renormalized to sum to 1, so a noData category never drags
// the result down. With nothing contributing the overall score is noData.
func Overall(categories []domain.CategoryScore, weights map[domain.CategoryKey]float64) domain.OverallScore {
	total := 0.0
	for _, c := range categories {
		if c.NoData {
			continue
		}
		total += weights[c.Key]
	}
	if total <= 0 {
		return domain.OverallScore{Score: NoDataScore, NoData: true}
	}

	used := make(map[domain.CategoryKey]float64)
	sum := 0.0
	for _, c := range categories {
		w := weights[c.Key]
		if c.NoData || w == 0 {
			continue
		}
		nw := w / total
		used[c.Key] = nw
		sum += nw * float64(c.Score)
	}
	return domain.OverallScore{Score: int(math.Round(sum)), Weights: used}
}
