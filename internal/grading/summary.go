package grading

import (
	"math"
	"sort"
)

// Summary aggregates a class list of calculated assessments.
type Summary struct {
	Students     int            `json:"students"`
	Complete     int            `json:"complete"`
	Absent       int            `json:"absent"`
	Exempt       int            `json:"exempt"`
	Pending      int            `json:"pending"`
	Passed       int            `json:"passed"`
	PassRate     float64        `json:"pass_rate"`
	Average      float64        `json:"average"`
	Highest      float64        `json:"highest"`
	Lowest       float64        `json:"lowest"`
	Distribution map[string]int `json:"distribution"`
}

// Summarize counts outcomes and computes score statistics over the complete
// records. Pass/fail uses system (default scale when nil); the distribution
// counts the grade already attached to each record. Records that are both
// absent and exempt are counted as absent.
func Summarize(results []CalculatedAssessment, system *GradingSystem) Summary {
	effective := Effective(system)
	summary := Summary{
		Students:     len(results),
		Distribution: map[string]int{},
	}

	var sum float64
	for _, result := range results {
		switch {
		case result.IsAbsent:
			summary.Absent++
			continue
		case result.IsExempt:
			summary.Exempt++
			continue
		case !result.IsComplete || result.Total == nil:
			summary.Pending++
			continue
		}

		total := *result.Total
		if summary.Complete == 0 {
			summary.Highest = total
			summary.Lowest = total
		}
		summary.Complete++
		sum += total
		summary.Highest = math.Max(summary.Highest, total)
		summary.Lowest = math.Min(summary.Lowest, total)

		if effective.Resolve(total).Passed {
			summary.Passed++
		}
		if result.Grade != nil {
			summary.Distribution[*result.Grade]++
		}
	}

	if summary.Complete > 0 {
		summary.Average = sum / float64(summary.Complete)
		summary.PassRate = float64(summary.Passed) / float64(summary.Complete) * 100
	}

	return summary
}

// RankTotals assigns competition ranks (1, 2, 2, 4) to complete records by
// total, highest first. Incomplete records get rank 0. The returned slice is
// index-aligned with results.
func RankTotals(results []CalculatedAssessment) []int {
	ranks := make([]int, len(results))
	indexes := make([]int, 0, len(results))
	for i, result := range results {
		if result.IsComplete && result.Total != nil {
			indexes = append(indexes, i)
		}
	}

	sort.SliceStable(indexes, func(a, b int) bool {
		return *results[indexes[a]].Total > *results[indexes[b]].Total
	})

	for position, idx := range indexes {
		if position > 0 {
			prev := indexes[position-1]
			if *results[prev].Total == *results[idx].Total {
				ranks[idx] = ranks[prev]
				continue
			}
		}
		ranks[idx] = position + 1
	}

	return ranks
}
