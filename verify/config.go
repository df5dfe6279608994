// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verify

import (
	"errors"
	"time"
)

// Timings holds every bound the scenarios wait on.
type Timings struct {
	// StoreWait bounds the wait for window.store in the dot-grid check.
	StoreWait time.Duration
	// Settle is the pause after dispatching the fixture and after the
	// board first appears.
	Settle time.Duration
	// Expect bounds ordinary UI assertions.
	Expect time.Duration
	// BoardWait bounds the wait for the match to start, which includes the
	// lobby countdown.
	BoardWait time.Duration
	// KeyGap separates repeated key presses.
	KeyGap time.Duration
	// Pause separates the phases of an attack round.
	Pause time.Duration
	// StepTimeout bounds any single recorded step.
	StepTimeout time.Duration
}

// DefaultTimings suit a game served from the local machine.
func DefaultTimings() Timings {
	return Timings{
		StoreWait:   5 * time.Second,
		Settle:      1 * time.Second,
		Expect:      5 * time.Second,
		BoardWait:   35 * time.Second,
		KeyGap:      100 * time.Millisecond,
		Pause:       1 * time.Second,
		StepTimeout: 60 * time.Second,
	}
}

// Config is shared by both scenarios.
type Config struct {
	// BaseURL is where the game client is served.
	BaseURL string
	// OutputDir receives screenshots. It is created if absent.
	OutputDir string
	Timings   Timings
	Logger    Logger
}

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultOutputDir = "verification"
)

var ErrStoreUnavailable = errors.New("window.store never became available")

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Timings == (Timings{}) {
		c.Timings = DefaultTimings()
	}
	if c.Logger == nil {
		c.Logger = StdLogger
	}
	return c
}
