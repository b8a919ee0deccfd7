package engine

import (
	"github.com/voxhire/interviewd/domain"
)

// defaultMetricWeights weights the aggregated metrics when computing the
// overall score.
var defaultMetricWeights = map[string]float64{
	domain.MetricTechnicalDepth:  1.2,
	domain.MetricCommunication:   1.0,
	domain.MetricConfidence:      0.8,
	domain.MetricLogicalThinking: 1.1,
	domain.MetricProblemSolving:  1.2,
	domain.MetricCultureFit:      0.9,
}

// maxInsightTags caps deduplicated weakness/strength lists.
const maxInsightTags = 5

// ClampScore clamps a metric score into [0,10].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// NormalizeScores returns a complete metric map built from raw
// collaborator output: present values are clamped into [0,10], missing
// metrics default to the 5.0 midpoint.
func NormalizeScores(raw map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(domain.Metrics))
	for _, metric := range domain.Metrics {
		v, ok := raw[metric]
		if !ok {
			scores[metric] = 5.0
			continue
		}
		scores[metric] = ClampScore(v)
	}
	return scores
}

// Aggregate computes the weighted mean of each metric across all
// evaluations. The result always holds every metric key; with no
// evaluations every value is 0.0. Pure and deterministic.
func Aggregate(evaluations []domain.AnswerEvaluation, weights map[string]float64) map[string]float64 {
	aggregated := make(map[string]float64, len(domain.Metrics))
	if len(evaluations) == 0 {
		for _, metric := range domain.Metrics {
			aggregated[metric] = 0.0
		}
		return aggregated
	}

	for _, metric := range domain.Metrics {
		weight := 1.0
		if weights != nil {
			if w, ok := weights[metric]; ok {
				weight = w
			}
		}

		weightedSum := 0.0
		totalWeight := 0.0
		for _, eval := range evaluations {
			weightedSum += eval.MetricScore(metric) * weight
			totalWeight += weight
		}
		if totalWeight > 0 {
			aggregated[metric] = weightedSum / totalWeight
		} else {
			aggregated[metric] = 0.0
		}
	}
	return aggregated
}

// OverallScore computes the weighted mean across the aggregated metrics,
// clamped to [0,10]. A nil metricWeights uses the fixed defaults.
func OverallScore(aggregated map[string]float64, metricWeights map[string]float64) float64 {
	if metricWeights == nil {
		metricWeights = defaultMetricWeights
	}

	weightedSum := 0.0
	totalWeight := 0.0
	for _, metric := range domain.Metrics {
		weight := 1.0
		if w, ok := metricWeights[metric]; ok {
			weight = w
		}
		weightedSum += aggregated[metric] * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}
	return ClampScore(weightedSum / totalWeight)
}

// VerdictFor maps an overall score to the hire recommendation. Bands are
// inclusive on their lower bound: exactly 7.5 is Hire, exactly 6.0 is
// Borderline.
func VerdictFor(overallScore float64) domain.Verdict {
	switch {
	case overallScore >= 7.5:
		return domain.VerdictHire
	case overallScore >= 6.0:
		return domain.VerdictBorderline
	default:
		return domain.VerdictNoHire
	}
}

// BuildInsights derives reporting insights from the evaluation history.
// Strongest/weakest ties break by the fixed metric enumeration order.
func BuildInsights(evaluations []domain.AnswerEvaluation, aggregated map[string]float64) domain.Insights {
	insights := domain.Insights{
		TotalAnswers: len(evaluations),
	}

	if len(aggregated) > 0 {
		strongest, weakest := domain.Metrics[0], domain.Metrics[0]
		for _, metric := range domain.Metrics {
			if aggregated[metric] > aggregated[strongest] {
				strongest = metric
			}
			if aggregated[metric] < aggregated[weakest] {
				weakest = metric
			}
		}
		insights.StrongestMetric = strongest
		insights.WeakestMetric = weakest
	}

	var weaknesses, strengths []string
	for _, eval := range evaluations {
		weaknesses = append(weaknesses, eval.Weaknesses...)
		strengths = append(strengths, eval.Strengths...)
	}
	insights.CommonWeaknesses = dedupeCapped(weaknesses, maxInsightTags)
	insights.CommonStrengths = dedupeCapped(strengths, maxInsightTags)

	if len(evaluations) > 0 {
		sum := 0.0
		for _, eval := range evaluations {
			sum += eval.AverageScore()
		}
		insights.AverageScore = sum / float64(len(evaluations))
	}
	return insights
}

// Finalize computes the immutable FinalEvaluation for a completed
// evaluation history.
func Finalize(evaluations []domain.AnswerEvaluation, totalQuestions int) domain.FinalEvaluation {
	aggregated := Aggregate(evaluations, nil)
	overall := OverallScore(aggregated, nil)
	return domain.FinalEvaluation{
		OverallScore:      overall,
		AggregatedMetrics: aggregated,
		Verdict:           VerdictFor(overall),
		Insights:          BuildInsights(evaluations, aggregated),
		TotalQuestions:    totalQuestions,
		TotalAnswers:      len(evaluations),
	}
}

func dedupeCapped(tags []string, limit int) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, limit)
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}
