package learning

import "sort"

// tally accumulates scores per key and remembers first-seen order, so rankings break ties by
// the order keys were first added
type tally[K comparable] struct {
	order  []K
	sums   map[K]float64
	counts map[K]int
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{
		sums:   make(map[K]float64),
		counts: make(map[K]int),
	}
}

func (t *tally[K]) add(key K, value float64) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
	}
	t.sums[key] += value
	t.counts[key]++
}

func (t *tally[K]) len() int {
	return len(t.order)
}

func (t *tally[K]) count(key K) int {
	return t.counts[key]
}

func (t *tally[K]) mean(key K) float64 {
	if t.counts[key] == 0 {
		return 0
	}
	return t.sums[key] / float64(t.counts[key])
}

func (t *tally[K]) means() map[K]float64 {
	out := make(map[K]float64, len(t.order))
	for _, key := range t.order {
		out[key] = t.mean(key)
	}
	return out
}

// byMean returns at most n keys by descending mean
func (t *tally[K]) byMean(n int) []K {
	return t.top(n, t.mean)
}

// bySum returns at most n keys by descending sum
func (t *tally[K]) bySum(n int) []K {
	return t.top(n, func(key K) float64 { return t.sums[key] })
}

func (t *tally[K]) top(n int, score func(K) float64) []K {
	keys := append([]K(nil), t.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return score(keys[i]) > score(keys[j])
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
