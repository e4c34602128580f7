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
	"testing"

	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestUnitTruncatedStd(t *testing.T) {
	// Variance of a unit normal truncated to [a, b] is
	// 1 + (a pdf(a) - b pdf(b))/Z - ((pdf(a) - pdf(b))/Z)^2, Z = cdf(b)-cdf(a).
	z := distuv.UnitNormal.CDF(2) - distuv.UnitNormal.CDF(-2)
	variance := 1 - 4*distuv.UnitNormal.Prob(2)/z
	assert.InDelta(t, unitTruncatedStd, math.Sqrt(variance), 1e-15)
}

func TestTruncatedNormal(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 128, 64)
	values := sampleValues(t, TruncatedNormalFn(42, 1.0, FanIn), shape)

	// Exact truncation: no sample may reach 2 standard deviations of the
	// pre-correction distribution.
	bound := 2 * math.Sqrt(1.0/128) / unitTruncatedStd
	require.Less(t, slices.Max(values), bound)
	require.Greater(t, slices.Min(values), -bound)

	// The truncation correction makes the overall spread come out at
	// sqrt(scale/fan) exactly.
	mean, stddev := meanStd(values)
	assert.InDelta(t, 0, mean, 0.005)
	assert.InEpsilon(t, math.Sqrt(1.0/128), stddev, 0.05)
}

func TestTruncatedNormalFanModes(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 128, 64)
	_, stddev := meanStd(sampleValues(t, TruncatedNormalFn(3, 1.0, FanOut), shape))
	assert.InEpsilon(t, math.Sqrt(1.0/64), stddev, 0.05)
	_, stddev = meanStd(sampleValues(t, TruncatedNormalFn(3, 1.0, FanAvg), shape))
	assert.InEpsilon(t, math.Sqrt(1.0/96), stddev, 0.05)

	assert.Equal(t, 128.0, FanIn.fan(shape))
	assert.Equal(t, 64.0, FanOut.fan(shape))
	assert.Equal(t, 96.0, FanAvg.fan(shape))
}

func TestLeCunAndHe(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 128, 64)
	_, lecun := meanStd(sampleValues(t, LeCunNormalFn(11), shape))
	_, he := meanStd(sampleValues(t, HeNormalFn(11), shape))
	assert.InEpsilon(t, math.Sqrt2, he/lecun, 0.05)
}

func TestTruncatedNormalScaleValidation(t *testing.T) {
	require.Panics(t, func() { TruncatedNormalFn(1, 0, FanIn) })
	require.Panics(t, func() { TruncatedNormalFn(1, -2.0, FanIn) })
}

func TestTruncatedNormalBiasFan(t *testing.T) {
	// Rank-1 variables have fan 1: the distribution falls back to
	// sqrt(scale), well-defined instead of dividing by zero.
	values := sampleValues(t, TruncatedNormalFn(5, 1.0, FanIn), shapes.Make(dtypes.Float32, 4096))
	_, stddev := meanStd(values)
	assert.InEpsilon(t, 1.0, stddev, 0.05)
}
