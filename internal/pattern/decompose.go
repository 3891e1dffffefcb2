package pattern

import (
	"fmt"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Decompose splits values into trend, seasonal and residual components using
// an additive model with the given period.
//
// The trend is a centered moving average (a 2×period average for even
// periods), so the first and last period/2 trend and residual values are
// not available. At least two full periods are required.
func Decompose(values []float64, period int) (trend []domain.NullFloat, seasonal []float64, residual []domain.NullFloat, err error) {
	if period < 2 {
		return nil, nil, nil, fmt.Errorf("seasonal period must be at least 2, got %d", period)
	}
	n := len(values)
	if n < 2*period {
		return nil, nil, nil, &InsufficientDataError{Bins: n, Required: 2 * period}
	}

	weights := movingAverageWeights(period)
	half := len(weights) / 2

	trend = make([]domain.NullFloat, n)
	for i := half; i < n-half; i++ {
		var sum float64
		for k, w := range weights {
			sum += w * values[i-half+k]
		}
		trend[i] = domain.Float(sum)
	}

	sums := make([]float64, period)
	nums := make([]int, period)
	for i := half; i < n-half; i++ {
		sums[i%period] += values[i] - trend[i].Float
		nums[i%period]++
	}
	averages := make([]float64, period)
	var total float64
	for j := range averages {
		if nums[j] > 0 {
			averages[j] = sums[j] / float64(nums[j])
		}
		total += averages[j]
	}
	mean := total / float64(period)
	for j := range averages {
		averages[j] -= mean
	}

	seasonal = make([]float64, n)
	residual = make([]domain.NullFloat, n)
	for i := range values {
		seasonal[i] = averages[i%period]
		if trend[i].Valid {
			residual[i] = domain.Float(values[i] - trend[i].Float - seasonal[i])
		}
	}
	return trend, seasonal, residual, nil
}

func movingAverageWeights(period int) []float64 {
	if period%2 == 1 {
		w := make([]float64, period)
		for i := range w {
			w[i] = 1 / float64(period)
		}
		return w
	}
	w := make([]float64, period+1)
	for i := range w {
		w[i] = 1 / float64(period)
	}
	w[0] /= 2
	w[period] /= 2
	return w
}
