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

// Package activations implements the activation functions used by the layer
// builders in this module, including the scaled SiLU of GemNet-style
// interaction blocks, with a generic Apply to apply an activation by its
// type.
//
// There is also FromName to convert an activation name (string) to its type,
// and ApplyFromContext that applies an activation based on the
// hyperparameter ParamActivation defined in a context.
package activations

import (
	"math"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
)

const (
	// ParamActivation context hyperparameter defines the activation to use,
	// for models using ApplyFromContext. Available values are: "none",
	// "relu", "silu", "scaled_silu", "gelu" or "gelu_approx". The default is
	// "relu". See activations.TypeValues for the complete list.
	ParamActivation = "activation"

	// SiluGainDivisor rescales the SiLU for TypeScaledSilu: the output is
	// divided by 0.6, approximately restoring unit variance for unit-variance
	// inputs so values neither shrink nor blow up across stacked blocks.
	SiluGainDivisor = 0.6
)

// Type is an enum for the supported activation functions.
//
// Values are converted to snake-case strings (e.g.: TypeScaledSilu ->
// "scaled_silu") and can be converted back with TypeString or FromName.
type Type int

const (
	TypeNone Type = iota
	TypeRelu
	TypeSilu
	TypeScaledSilu
	TypeGelu
	TypeGeluApprox
)

//go:generate enumer -type=Type -trimprefix=Type -transform=snake -values -text -json -yaml activations.go

// ApplyFromContext picks an activation function from the context using
// [ParamActivation], and applies it to x.
//
// It defaults to "relu".
func ApplyFromContext(ctx *context.Context, x *Node) *Node {
	activationName := context.GetParamOr(ctx, ParamActivation, "relu")
	return Apply(FromName(activationName), x)
}

// Apply the given activation type.
// The TypeNone activation is a no-op.
//
// See TypeValues for valid values.
func Apply(activation Type, x *Node) *Node {
	switch activation {
	case TypeNone:
		return x
	case TypeRelu:
		return Relu(x)
	case TypeSilu:
		return Silu(x)
	case TypeScaledSilu:
		return ScaledSilu(x)
	case TypeGelu:
		return Gelu(x)
	case TypeGeluApprox:
		return GeluApprox(x)
	default:
		Panicf("Apply got invalid activation value %q: options are %v", activation, TypeValues())
	}
	return nil
}

// FromName converts the name of an activation to its type.
// It panics with a helpful message if name is invalid.
//
// An empty string is converted to TypeNone.
func FromName(activationName string) Type {
	if activationName == "" {
		return TypeNone
	}
	activation, err := TypeString(activationName)
	if err != nil {
		Panicf("invalid activation name %q: options are %v", activationName, TypeValues())
	}
	return activation
}

// FusedKind classifies the activation for code that special-cases the two
// common transformer feed-forward activations: it returns 1 for relu, 2 for
// the gelu variants and 0 for everything else.
func (i Type) FusedKind() int {
	switch i {
	case TypeRelu:
		return 1
	case TypeGelu, TypeGeluApprox:
		return 2
	}
	return 0
}

// Relu activation function: Max(x, 0).
func Relu(x *Node) *Node {
	return Max(x, ZerosLike(x))
}

// Silu activation (or Swish) returns `x * Sigmoid(x)`.
//
// Introduced in "Gaussian Error Linear Units (GELUs)"
// [Hendrycks et al. 2016](https://arxiv.org/abs/1606.08415) and named swish
// in "Searching for Activation Functions"
// [Ramachandran et al. 2017](https://arxiv.org/abs/1710.05941).
func Silu(x *Node) *Node {
	return Mul(x, Sigmoid(x))
}

// ScaledSilu is the SiLU divided by [SiluGainDivisor] (0.6), the activation
// of GemNet-style dense blocks: ScaledSilu(0) == 0, and for large x it
// approaches x/0.6.
func ScaledSilu(x *Node) *Node {
	return MulScalar(Silu(x), 1.0/SiluGainDivisor)
}

// Gelu is the exact Gaussian error linear unit, `x * Phi(x)` with Phi the
// standard normal CDF, computed with Erf.
func Gelu(x *Node) *Node {
	cdf := MulScalar(AddScalar(Erf(DivScalar(x, math.Sqrt2)), 1), 0.5)
	return Mul(x, cdf)
}

// GeluApprox is the tanh approximation of Gelu:
// `0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))`.
func GeluApprox(x *Node) *Node {
	inner := Add(x, MulScalar(Mul(x, Mul(x, x)), 0.044715))
	inner = Tanh(MulScalar(inner, math.Sqrt(2.0/math.Pi)))
	return MulScalar(Mul(x, AddScalar(inner, 1)), 0.5)
}
