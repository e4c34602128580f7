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

package layers

import (
	"fmt"
	"math"
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/ctxtest"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/foldmlx/foldmlx/layers/activations"
)

func TestResidual(t *testing.T) {
	// With the stacked layers forced to zero, only the rescaled skip
	// connection remains.
	want := make([][]float64, 2)
	value := 0.0
	for ii := range want {
		want[ii] = make([]float64, 4)
		for jj := range want[ii] {
			want[ii][jj] = value / math.Sqrt2
			value++
		}
	}
	ctxtest.RunTestGraphFn(t, "Residual with zeroed layers returns x/sqrt(2)",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			x := IotaFull(g, shapes.Make(dtypes.Float64, 2, 4))
			for ii := 0; ii < 2; ii++ {
				zeros := make([][]float64, 4)
				for jj := range zeros {
					zeros[jj] = make([]float64, 4)
				}
				ctx.In("residual").In(fmt.Sprintf("dense_%d", ii)).In("dense").
					VariableWithValue("weights", zeros)
			}
			y := NewResidual(ctx.Checked(false), x).Done()
			return []*Node{x}, []*Node{y}
		}, []any{want}, 1e-6)

	for ii := range want {
		for jj := range want[ii] {
			want[ii][jj] *= 2
		}
	}
	ctxtest.RunTestGraphFn(t, "Residual with identity layers returns x*sqrt(2)",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			x := IotaFull(g, shapes.Make(dtypes.Float64, 2, 4))
			for ii := 0; ii < 2; ii++ {
				eye := make([][]float64, 4)
				for jj := range eye {
					eye[jj] = make([]float64, 4)
					eye[jj][jj] = 1
				}
				ctx.In("residual").In(fmt.Sprintf("dense_%d", ii)).In("dense").
					VariableWithValue("weights", eye)
			}
			y := NewResidual(ctx.Checked(false), x).
				Activation(activations.TypeNone).
				Done()
			return []*Node{x}, []*Node{y}
		}, []any{want}, 1e-6)
}

func TestResidualVariables(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	g := NewGraph(backend, "residual_variables")
	x := Ones(g, shapes.Make(dtypes.Float32, 3, 8))
	y := NewResidual(ctx, x).NumLayers(3).InitializerSeed(17).Done()
	require.Equal(t, x.Shape().Dimensions, y.Shape().Dimensions)

	for ii := 0; ii < 3; ii++ {
		scope := fmt.Sprintf("/residual/dense_%d/dense", ii)
		weightsVar := ctx.InspectVariable(scope, "weights")
		require.NotNilf(t, weightsVar, "missing weights in scope %q", scope)
		require.Equal(t, []int{8, 8}, weightsVar.Shape().Dimensions)
	}
}

func TestResidualPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	g := NewGraph(backend, "residual_panics")
	x := Ones(g, shapes.Make(dtypes.Float32, 3, 8))
	scalar := Ones(g, shapes.Make(dtypes.Float32))
	require.Panics(t, func() { NewResidual(ctx.In("a"), x).NumLayers(0).Done() })
	require.Panics(t, func() { NewResidual(ctx.In("b"), scalar).Done() })
}
