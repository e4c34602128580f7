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
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/context"
)

// Scheme names the ready-made (weights, biases) initializer pairs used by
// layers.Linear, following the init names of AlphaFold-lineage linear
// layers. Each scheme pairs a weight distribution with the bias fill that
// the weight distribution assumes.
type Scheme int

const (
	// SchemeDefault is the LeCun truncated normal, variance 1/fanIn, with
	// zero biases.
	SchemeDefault Scheme = iota
	// SchemeRelu is the He truncated normal, variance 2/fanIn, with zero
	// biases.
	SchemeRelu
	// SchemeGlorot is the Glorot uniform, with zero biases.
	SchemeGlorot
	// SchemeGating zeroes the weights and sets biases to one: a sigmoid gate
	// so initialized starts (mostly) open, letting gradients through.
	SchemeGating
	// SchemeNormal is N(0, 1/fanIn), with zero biases.
	SchemeNormal
	// SchemeFinal zeroes weights and biases, so the projection closing a
	// residual block starts as a no-op and the block as the identity.
	SchemeFinal
)

//go:generate enumer -type=Scheme -trimprefix=Scheme -transform=snake -values -text scheme.go

// WeightsInitializer returns the weight-side initializer of the scheme.
//
// initialSeed seeds the samplers of the randomized schemes; NoSeed picks a
// seed from the clock. The constant schemes (gating, final) ignore it.
func (s Scheme) WeightsInitializer(initialSeed int64) context.VariableInitializer {
	switch s {
	case SchemeDefault:
		return LeCunNormalFn(initialSeed)
	case SchemeRelu:
		return HeNormalFn(initialSeed)
	case SchemeGlorot:
		return GlorotUniformFn(initialSeed)
	case SchemeGating, SchemeFinal:
		return Zero
	case SchemeNormal:
		return FanInNormalFn(initialSeed)
	default:
		Panicf("invalid initializer scheme %d: options are %v", int(s), SchemeValues())
	}
	return nil
}

// BiasesInitializer returns the bias-side initializer of the scheme. Only
// gating deviates from zero.
func (s Scheme) BiasesInitializer() context.VariableInitializer {
	if s == SchemeGating {
		return One
	}
	return Zero
}

// SchemeFromName converts a scheme name ("default", "relu", "glorot",
// "gating", "normal", "final") to its Scheme. It panics with a helpful
// message if name is invalid.
func SchemeFromName(name string) Scheme {
	scheme, err := SchemeString(name)
	if err != nil {
		Panicf("invalid initializer scheme name %q: options are %v", name, SchemeValues())
	}
	return scheme
}
