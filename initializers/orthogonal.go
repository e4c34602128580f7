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
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/shapes"
	"gonum.org/v1/gonum/mat"
)

// HeOrthogonalFn returns the He-orthogonal initializer used by GemNet-style
// interaction blocks ("GemNet: Universal Directional Graph Neural Networks
// for Molecules", Gasteiger et al. 2021, https://arxiv.org/abs/2106.08903):
//
//  1. draw a random orthogonal matrix (QR decomposition of a Gaussian
//     matrix, sign-corrected by the diagonal of R so the result is uniform
//     over the orthogonal group);
//  2. standardize it so every output unit's weights have zero mean and unit
//     variance;
//  3. rescale by sqrt(1/fanIn), giving each output unit's weights variance
//     exactly 1/fanIn while keeping them maximally spread out.
//
// It applies to rank-2 variables [fanIn, fanOut] and to the rank-3
// [numSpherical, numRadial, outputDim] weights of basis down-projections,
// which are flattened to [numSpherical, numRadial*outputDim] for the
// orthogonalization, as in the reference GemNet models. Other ranks panic.
//
// initialSeed seeds the host sampler; NoSeed picks a seed from the clock.
func HeOrthogonalFn(initialSeed int64) context.VariableInitializer {
	h := newHostRng(initialSeed)
	return func(g *Graph, shape shapes.Shape) *Node {
		checkFloat("HeOrthogonal", shape)
		rank := shape.Rank()
		if rank != 2 && rank != 3 {
			Panicf("HeOrthogonal initializes rank-2 or rank-3 weights only -- shape requested %s", shape)
		}
		rows := shape.Dimensions[0]
		cols := shape.Size() / rows
		if rows < 2 && cols < 2 {
			Panicf("HeOrthogonal requires at least 2 elements per axis -- shape requested %s", shape)
		}
		values := randomOrthogonal(h, rows, cols)
		standardize(values, shape.Dimensions)
		fanIn, _ := fanInOut(shape)
		scale := math.Sqrt(1.0 / float64(fanIn))
		for ii := range values {
			values[ii] *= scale
		}
		return materialize(g, values, shape)
	}
}

// randomOrthogonal draws a (rows x cols) matrix, row-major, whose
// shorter-axis vectors form an orthonormal set: thin Q of the QR
// decomposition of a Gaussian matrix, each column multiplied by the sign of
// the corresponding diagonal element of R (Mezzadri 2007,
// https://arxiv.org/abs/math-ph/0609050). When rows < cols the
// decomposition runs on the transpose, so the orthonormal vectors always
// span the longer axis.
func randomOrthogonal(h *hostRng, rows, cols int) []float64 {
	m, n := rows, cols
	transposed := m < n
	if transposed {
		m, n = n, m
	}
	var qr mat.QR
	qr.Factorize(mat.NewDense(m, n, h.normFloat64s(m*n)))
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)
	values := make([]float64, rows*cols)
	for ii := 0; ii < m; ii++ {
		for jj := 0; jj < n; jj++ {
			v := q.At(ii, jj)
			if r.At(jj, jj) < 0 {
				v = -v
			}
			if transposed {
				values[jj*cols+ii] = v
			} else {
				values[ii*cols+jj] = v
			}
		}
	}
	return values
}

// standardize shifts and scales values, row-major with dims' last axis
// indexing output units, so that each output unit's weights have zero mean
// and unit unbiased variance. The epsilon guards degenerate all-equal
// columns.
func standardize(values []float64, dims []int) {
	const eps = 1e-6
	numOutputs := dims[len(dims)-1]
	fan := len(values) / numOutputs
	if fan < 2 {
		Panicf("standardization requires fanIn >= 2, got dimensions %v", dims)
	}
	for out := 0; out < numOutputs; out++ {
		mean := 0.0
		for ii := 0; ii < fan; ii++ {
			mean += values[ii*numOutputs+out]
		}
		mean /= float64(fan)
		variance := 0.0
		for ii := 0; ii < fan; ii++ {
			d := values[ii*numOutputs+out] - mean
			variance += d * d
		}
		variance /= float64(fan - 1)
		invStd := 1.0 / math.Sqrt(variance+eps)
		for ii := 0; ii < fan; ii++ {
			values[ii*numOutputs+out] = (values[ii*numOutputs+out] - mean) * invStd
		}
	}
}
