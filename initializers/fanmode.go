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
	"github.com/gomlx/gomlx/types/shapes"
)

// FanMode selects which fan measure divides the scale of a fan-scaled
// initializer.
type FanMode int

const (
	// FanIn divides by the number of inputs feeding each output unit.
	FanIn FanMode = iota
	// FanOut divides by the number of output units.
	FanOut
	// FanAvg divides by the mean of fan-in and fan-out.
	FanAvg
)

//go:generate enumer -type=FanMode -transform=snake -values -text fanmode.go

// fan returns the selected fan measure for shape. FanAvg may be fractional.
func (m FanMode) fan(shape shapes.Shape) float64 {
	fanIn, fanOut := fanInOut(shape)
	switch m {
	case FanIn:
		return float64(fanIn)
	case FanOut:
		return float64(fanOut)
	case FanAvg:
		return float64(fanIn+fanOut) / 2
	default:
		Panicf("invalid fan mode %d: options are %v", int(m), FanModeValues())
	}
	return 0
}

// FanModeFromName converts a fan mode name ("fan_in", "fan_out", "fan_avg")
// to its FanMode. It panics with a helpful message if name is invalid.
func FanModeFromName(name string) FanMode {
	mode, err := FanModeString(name)
	if err != nil {
		Panicf("invalid fan mode name %q: options are %v", name, FanModeValues())
	}
	return mode
}
