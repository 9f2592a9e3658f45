package sampling

import "math"

// JaccardConfidence is the point estimate and 95% confidence interval of
// a Jaccard index computed on a sample instead of the full population.
type JaccardConfidence struct {
	Jaccard         float64
	StandardError   float64
	MarginOfError95 float64
	Low             float64
	High            float64
	EffectiveN      int
}

// EstimateJaccardConfidence treats the Jaccard index J = |A∩B| / |A∪B| as
// a proportion over the union set and applies the finite population
// correction:
//
//	SE(p) = sqrt(p(1-p) / (n-1)) * sqrt(1 - n/N)
//
// with n the union size in the sample and N the union size extrapolated
// to the population. A full census or a union of at most one element has
// zero standard error. All values are rounded to six decimals.
func EstimateJaccardConfidence(intersection, union, sampleSize, populationSize int) JaccardConfidence {
	if union == 0 {
		return JaccardConfidence{}
	}

	p := float64(intersection) / float64(union)

	if sampleSize >= populationSize || union <= 1 {
		exact := round6(p)
		return JaccardConfidence{
			Jaccard:    exact,
			Low:        exact,
			High:       exact,
			EffectiveN: union,
		}
	}

	scaling := float64(populationSize) / float64(sampleSize)
	estimatedUnionPop := float64(union) * scaling

	fpc := math.Sqrt(math.Max(0.0, 1.0-float64(union)/estimatedUnionPop))
	variance := p * (1.0 - p) / float64(union-1)
	se := math.Sqrt(variance) * fpc

	const z = 1.96
	moe := z * se

	return JaccardConfidence{
		Jaccard:         round6(p),
		StandardError:   round6(se),
		MarginOfError95: round6(moe),
		Low:             round6(math.Max(0.0, p-moe)),
		High:            round6(math.Min(1.0, p+moe)),
		EffectiveN:      union,
	}
}

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }
