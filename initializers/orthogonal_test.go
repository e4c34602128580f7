/*
 *	Copyright 2025 The foldmlx Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package initializers

import (
	"testing"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// columnStats returns mean and unbiased variance of output column out of a
// flat row-major matrix with numOutputs columns.
func columnStats(values []float64, numOutputs, out int) (mean, variance float64) {
	fan := len(values) / numOutputs
	for ii := 0; ii < fan; ii++ {
		mean += values[ii*numOutputs+out]
	}
	mean /= float64(fan)
	for ii := 0; ii < fan; ii++ {
		d := values[ii*numOutputs+out] - mean
		variance += d * d
	}
	variance /= float64(fan - 1)
	return
}

func TestStandardize(t *testing.T) {
	values := []float64{
		1, 10, 100,
		2, 20, 200,
		4, 40, 400,
		8, 80, 800,
	}
	standardize(values, []int{4, 3})
	for out := 0; out < 3; out++ {
		mean, variance := columnStats(values, 3, out)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, variance, 1e-5)
	}
}

func TestRandomOrthogonal(t *testing.T) {
	h := newHostRng(42)

	// Square: Q^T Q == I.
	q := mat.NewDense(8, 8, randomOrthogonal(h, 8, 8))
	var product mat.Dense
	product.Mul(q.T(), q)
	for ii := 0; ii < 8; ii++ {
		for jj := 0; jj < 8; jj++ {
			want := 0.0
			if ii == jj {
				want = 1.0
			}
			assert.InDelta(t, want, product.At(ii, jj), 1e-12)
		}
	}

	// Wide: the rows are orthonormal instead.
	wide := mat.NewDense(4, 12, randomOrthogonal(h, 4, 12))
	product.Mul(wide, wide.T())
	for ii := 0; ii < 4; ii++ {
		for jj := 0; jj < 4; jj++ {
			want := 0.0
			if ii == jj {
				want = 1.0
			}
			assert.InDelta(t, want, product.At(ii, jj), 1e-12)
		}
	}
}

func TestHeOrthogonal(t *testing.T) {
	// After standardization every output column has zero mean and unit
	// variance; the final scaling brings the variance to 1/fanIn.
	values := sampleValues(t, HeOrthogonalFn(42), shapes.Make(dtypes.Float32, 256, 256))
	for out := 0; out < 256; out++ {
		mean, variance := columnStats(values, 256, out)
		assert.InDelta(t, 0, mean, 1e-5)
		assert.InDelta(t, 1.0/256, variance, 1e-4)
	}

	// Rank-3 basis weights: fanIn is the product of the leading axes.
	values = sampleValues(t, HeOrthogonalFn(42), shapes.Make(dtypes.Float32, 7, 6, 64))
	for out := 0; out < 64; out++ {
		mean, variance := columnStats(values, 64, out)
		assert.InDelta(t, 0, mean, 1e-5)
		assert.InDelta(t, 1.0/42, variance, 1e-3)
	}
}

func TestHeOrthogonalFloat16(t *testing.T) {
	// Half precision materializes on the host; the spread must survive the
	// conversion.
	values := sampleValues(t, HeOrthogonalFn(42), shapes.Make(dtypes.Float16, 64, 64))
	_, variance := columnStats(values, 64, 0)
	assert.InDelta(t, 1.0/64, variance, 2e-3)
}

func TestHeOrthogonalDeterminism(t *testing.T) {
	shape := shapes.Make(dtypes.Float64, 16, 16)
	a := sampleValues(t, HeOrthogonalFn(7), shape)
	b := sampleValues(t, HeOrthogonalFn(7), shape)
	require.Equal(t, a, b)
	c := sampleValues(t, HeOrthogonalFn(8), shape)
	require.NotEqual(t, a, c)
}

func TestHeOrthogonalPanics(t *testing.T) {
	for _, shape := range []shapes.Shape{
		shapes.Make(dtypes.Float32, 16),         // Rank 1.
		shapes.Make(dtypes.Float32, 2, 2, 2, 2), // Rank 4.
		shapes.Make(dtypes.Int32, 16, 16),       // Non-float.
	} {
		require.Panics(t, func() {
			sampleValues(t, HeOrthogonalFn(1), shape)
		}, "shape %s should have panicked", shape)
	}
}
