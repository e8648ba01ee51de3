// Package stats computes per-column summary statistics (mean, standard
// deviation, frequency, min/max, cardinality) for the stats subcommand,
// and backs the mean/stddev aggregate UDFs the query engine registers.
package stats

import "math"

// OnlineStats accumulates mean and population variance in a single pass
// using Welford's algorithm, so neither the stats engine nor the mean/
// stddev UDFs need to hold every value in memory. NULLs are tracked
// separately rather than folded into the running mean, matching the
// aggregate UDFs' requirement to know how many rows contributed no value.
type OnlineStats struct {
	count     int64
	mean      float64
	m2        float64
	nullCount int64
}

// Push folds v into the running mean/variance.
func (o *OnlineStats) Push(v float64) {
	o.count++
	delta := v - o.mean
	o.mean += delta / float64(o.count)
	o.m2 += delta * (v - o.mean)
}

// PushNull records a row that contributed no numeric value.
func (o *OnlineStats) PushNull() {
	o.nullCount++
}

// Count returns the number of non-null values seen.
func (o *OnlineStats) Count() int64 { return o.count }

// NullCount returns the number of null values seen.
func (o *OnlineStats) NullCount() int64 { return o.nullCount }

// Mean returns the running mean, or 0 if no values have been pushed.
func (o *OnlineStats) Mean() float64 {
	if o.count == 0 {
		return 0
	}
	return o.mean
}

// Variance returns the population variance (divides by n, not n-1).
func (o *OnlineStats) Variance() float64 {
	if o.count == 0 {
		return 0
	}
	return o.m2 / float64(o.count)
}

// Stddev returns the population standard deviation.
func (o *OnlineStats) Stddev() float64 {
	return math.Sqrt(o.Variance())
}
