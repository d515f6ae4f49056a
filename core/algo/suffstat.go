package algo

import (
	"container/heap"
	"math"
)

// minSep is the shortest segment the oracle will emit.
const minSep = 2

type minHeap []float64

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(float64)) }
func (h *minHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type maxHeap struct{ minHeap }

func (h maxHeap) Less(i, j int) bool { return h.minHeap[i] > h.minHeap[j] }

// segmentStat tracks the running median of a segment and the sum of absolute
// deviations around it, updated in O(log n) per appended value.
type segmentStat struct {
	lows     maxHeap // lower half, top is the largest
	highs    minHeap // upper half, top is the smallest
	n        int
	med      float64
	totalVar float64
}

func (s *segmentStat) add(x float64) {
	s.n++
	switch {
	case s.highs.Len() == s.lows.Len():
		if s.highs.Len() == 0 || x < s.highs[0] {
			heap.Push(&s.lows, x)
			s.med = s.lows.minHeap[0]
			s.totalVar += s.med - x
		} else {
			heap.Push(&s.highs, x)
			s.med = s.highs[0]
			s.totalVar += x - s.med
		}
	case s.highs.Len() < s.lows.Len():
		if x >= s.lows.minHeap[0] {
			heap.Push(&s.highs, x)
			s.rebalanced(x, true)
		} else {
			heap.Push(&s.highs, heap.Pop(&s.lows))
			heap.Push(&s.lows, x)
			s.rebalanced(x, false)
		}
	default:
		if x <= s.highs[0] {
			heap.Push(&s.lows, x)
			s.rebalanced(x, false)
		} else {
			heap.Push(&s.lows, heap.Pop(&s.highs))
			heap.Push(&s.highs, x)
			s.rebalanced(x, true)
		}
	}
}

// rebalanced updates the median once both halves have equal size.
func (s *segmentStat) rebalanced(x float64, above bool) {
	lo, hi := s.lows.minHeap[0], s.highs[0]
	s.med = (lo + hi) / 2
	s.totalVar += (hi - lo) / 2
	if above {
		s.totalVar += x - s.med
	} else {
		s.totalVar += s.med - x
	}
}

// ll is the maximized Laplace log-likelihood of the segment.
func (s *segmentStat) ll() float64 {
	if s.totalVar == 0 || s.n < minSep {
		return math.Inf(-1)
	}
	n := float64(s.n)
	return -n * (1 + math.Log(2*s.totalVar/n))
}
