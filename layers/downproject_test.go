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
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/ctxtest"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestBasisDownProjection(t *testing.T) {
	// numSpherical=2, numEdges=1, numRadial=2, intermDim=2, kMax=1, with
	// forced weights so the contraction can be checked by hand.
	ctxtest.RunTestGraphFn(t, "BasisDownProjection contraction and transpose",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			basis := Const(g, [][][]float64{{{1, 2}}, {{3, 4}}})
			sphericalBasis := Const(g, [][][]float64{{{7, 9}}})
			ctx.In("basis_down_projection").VariableWithValue("weights",
				[][][]float64{
					{{1, 0}, {0, 1}},
					{{2, 0}, {0, 2}},
				})
			projected, spherical := NewBasisDownProjection(
				ctx.Checked(false), basis, sphericalBasis, 2).Done()
			return []*Node{basis, sphericalBasis}, []*Node{projected, spherical}
		}, []any{
			[][][]float64{{{1, 6}, {2, 8}}},
			[][][]float64{{{7}, {9}}},
		}, 1e-6)
}

func TestBasisDownProjectionShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	g := NewGraph(backend, "down_projection_shapes")
	basis := Ones(g, shapes.Make(dtypes.Float32, 3, 2, 4))
	sphericalBasis := Ones(g, shapes.Make(dtypes.Float32, 2, 6, 3))

	projected, spherical := NewBasisDownProjection(ctx.In("down"), basis, sphericalBasis, 5).
		InitializerSeed(11).
		Done()
	require.Equal(t, []int{2, 5, 3}, projected.Shape().Dimensions)
	require.Equal(t, []int{2, 3, 6}, spherical.Shape().Dimensions)
	require.Equal(t, dtypes.Float32, projected.DType())

	weightsVar := ctx.InspectVariable("/down/basis_down_projection", "weights")
	require.NotNil(t, weightsVar)
	require.Equal(t, []int{3, 4, 5}, weightsVar.Shape().Dimensions)
}

func TestBasisDownProjectionPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	g := NewGraph(backend, "down_projection_panics")
	basis := Ones(g, shapes.Make(dtypes.Float32, 3, 2, 4))
	sphericalBasis := Ones(g, shapes.Make(dtypes.Float32, 2, 6, 3))

	rank2 := Ones(g, shapes.Make(dtypes.Float32, 3, 2))
	require.Panics(t, func() {
		NewBasisDownProjection(ctx.In("a"), rank2, sphericalBasis, 5).Done()
	})
	require.Panics(t, func() {
		NewBasisDownProjection(ctx.In("b"), basis, rank2, 5).Done()
	})

	badSpherical := Ones(g, shapes.Make(dtypes.Float32, 2, 6, 5))
	require.Panics(t, func() {
		NewBasisDownProjection(ctx.In("c"), basis, badSpherical, 5).Done()
	})
	require.Panics(t, func() {
		NewBasisDownProjection(ctx.In("d"), basis, sphericalBasis, 0).Done()
	})

	basis64 := Ones(g, shapes.Make(dtypes.Float64, 3, 2, 4))
	require.Panics(t, func() {
		NewBasisDownProjection(ctx.In("e"), basis64, sphericalBasis, 5).Done()
	})
}
