package evaluation

import (
	"math"
	"sort"
)

// Precision calculates Precision at K: relevant hits in the top k divided
// by k, even when fewer than k documents were retrieved.
func Precision(hits []bool, k int) float64 {
	if k <= 0 {
		return 0
	}

	relevant := 0
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			relevant++
		}
	}

	return float64(relevant) / float64(k)
}

// Recall calculates Recall at K against the number of relevant documents.
func Recall(hits []bool, k int, totalRelevant int) float64 {
	if totalRelevant <= 0 {
		return 0
	}

	relevantInK := 0
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			relevantInK++
		}
	}

	return float64(relevantInK) / float64(totalRelevant)
}

// MRR calculates the reciprocal rank of the first hit.
func MRR(hits []bool) float64 {
	for i, hit := range hits {
		if hit {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecision calculates Average Precision over totalRelevant
// documents; relevant documents never retrieved contribute zero.
func AveragePrecision(hits []bool, totalRelevant int) float64 {
	if totalRelevant <= 0 {
		return 0
	}

	relevant := 0
	sumPrecision := 0.0
	for i, hit := range hits {
		if hit {
			relevant++
			sumPrecision += float64(relevant) / float64(i+1)
		}
	}

	return sumPrecision / float64(totalRelevant)
}

// DCG calculates Discounted Cumulative Gain at K:
// sum over ranks i=1..k of gain(i) / log2(i+1).
func DCG(gains []int, k int) float64 {
	if k > len(gains) {
		k = len(gains)
	}

	dcg := 0.0
	for i := 0; i < k; i++ {
		dcg += float64(gains[i]) / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCG calculates Normalized Discounted Cumulative Gain at K. gains are the
// graded relevances of the retrieved ranking; ideal holds every judged
// relevance in any order. It is 0 when the ideal DCG is 0.
func NDCG(gains, ideal []int, k int) float64 {
	sorted := make([]int, len(ideal))
	copy(sorted, ideal)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	idcg := DCG(sorted, k)
	if idcg == 0 {
		return 0
	}
	return DCG(gains, k) / idcg
}
