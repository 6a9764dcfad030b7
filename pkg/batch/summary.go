package batch

import (
	"math"

	"rageval/pkg/similarity"
)

// summarize aggregates successful runs overall and per configuration group.
// Failed runs are excluded from every average.
func summarize(runs []Run) Summary {
	var ok []Run
	for _, run := range runs {
		if run.Status == "success" {
			ok = append(ok, run)
		}
	}

	summary := Summary{
		ByMethod: make(map[similarity.Method]GroupStats),
		ByTopK:   make(map[int]GroupStats),
	}
	if len(ok) == 0 {
		return summary
	}

	var latency, length, chunks float64
	for _, run := range ok {
		latency += run.Metrics.LatencySeconds
		length += float64(run.Metrics.AnswerLength)
		chunks += float64(run.Metrics.ChunksRetrieved)
	}
	n := float64(len(ok))
	summary.Overall = Overall{
		AvgLatencySeconds:  round3(latency / n),
		AvgAnswerLength:    round1(length / n),
		AvgChunksRetrieved: round1(chunks / n),
	}

	var risk, coverage, citation float64
	var withFaithfulness int
	for _, run := range ok {
		if run.Metrics.Faithfulness == nil {
			continue
		}
		withFaithfulness++
		risk += run.Metrics.Faithfulness.HallucinationRisk
		coverage += run.Metrics.Faithfulness.EvidenceCoverage
		citation += run.Metrics.Faithfulness.CitationCoverage
	}
	if withFaithfulness > 0 {
		f := float64(withFaithfulness)
		summary.Faithfulness = &FaithfulnessSummary{
			AvgHallucinationRisk: round3(risk / f),
			AvgEvidenceCoverage:  round3(coverage / f),
			AvgCitationCoverage:  round3(citation / f),
		}
	}

	byMethod := make(map[similarity.Method][]Run)
	byTopK := make(map[int][]Run)
	for _, run := range ok {
		byMethod[run.Config.SimilarityMethod] = append(byMethod[run.Config.SimilarityMethod], run)
		byTopK[run.Config.TopK] = append(byTopK[run.Config.TopK], run)
	}
	for method, group := range byMethod {
		summary.ByMethod[method] = groupStats(group)
	}
	for k, group := range byTopK {
		summary.ByTopK[k] = groupStats(group)
	}
	return summary
}

func groupStats(group []Run) GroupStats {
	var latency, length float64
	for _, run := range group {
		latency += run.Metrics.LatencySeconds
		length += float64(run.Metrics.AnswerLength)
	}
	n := float64(len(group))
	return GroupStats{
		Count:           len(group),
		AvgLatency:      round3(latency / n),
		AvgAnswerLength: round1(length / n),
	}
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
