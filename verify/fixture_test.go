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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// renderFixture lays the state out one board row per line so golden diffs
// point at the changed row.
func renderFixture(t *testing.T, s *GameState) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return string(b)
	}
	var sb strings.Builder
	sb.WriteString("map:\n")
	for _, row := range s.Map {
		sb.WriteString(enc(row) + "\n")
	}
	sb.WriteString("players: " + enc(s.Players) + "\n")
	sb.WriteString("bombs: " + enc(s.Bombs) + "\n")
	sb.WriteString("explosions: " + enc(s.Explosions) + "\n")
	sb.WriteString("powerUps: " + enc(s.PowerUps) + "\n")
	return sb.String()
}

func TestDotGridFixtureGolden(t *testing.T) {
	actual := renderFixture(t, DotGridFixture())
	goldenPath := filepath.Join("testdata", "dot_grid_fixture.golden")

	if os.Getenv("UPDATE_GOLDENS") == "true" {
		if err := os.WriteFile(goldenPath, []byte(actual), 0644); err != nil {
			t.Fatalf("Failed to write golden file %s: %v", goldenPath, err)
		}
		t.Logf("Updated golden file: %s", goldenPath)
		return
	}
	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v", goldenPath, err)
	}
	if actual != string(expected) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(expected)),
			B:        difflib.SplitLines(actual),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  3,
		})
		t.Errorf("Fixture mismatch:\n%s", diff)
	}
}

func TestDotGridFixtureShape(t *testing.T) {
	f := DotGridFixture()
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if f.Width() != 13 || f.Height() != 11 {
		t.Errorf("Expected 13x11 board, got %dx%d", f.Width(), f.Height())
	}
	p := f.Players[0]
	if got := f.TileAt(p.X/CellSize, p.Y/CellSize); got != TileEmpty {
		t.Errorf("Player stands on tile %d, want empty", got)
	}
	for _, c := range []Cell{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 13, Y: 5}, {X: 5, Y: 11}} {
		if got := f.TileAt(c.X, c.Y); got != TileWall {
			t.Errorf("TileAt(%d,%d) = %d, want wall", c.X, c.Y, got)
		}
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		state GameState
		want  error
	}{
		{"Empty", GameState{}, ErrEmptyMap},
		{"EmptyRow", GameState{Map: [][]Tile{{}}}, ErrEmptyMap},
		{"Ragged", GameState{Map: [][]Tile{{0, 0}, {0}}}, ErrRaggedMap},
		{"UnknownTile", GameState{Map: [][]Tile{{0, 7}}}, ErrUnknownTile},
		{"NegativeTile", GameState{Map: [][]Tile{{-1}}}, ErrUnknownTile},
		{"MissingID", GameState{Map: [][]Tile{{0}}, Players: []Player{{}}}, ErrMissingPlayer},
		{"DuplicateID", GameState{Map: [][]Tile{{0}}, Players: []Player{{ID: "1"}, {ID: "1"}}}, ErrDuplicateID},
		{"OK", GameState{Map: [][]Tile{{0, 1, 2}}, Players: []Player{{ID: "1"}, {ID: "2"}}}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.state.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMarshalEmptyLists(t *testing.T) {
	b, err := json.Marshal(&GameState{Map: [][]Tile{{0}}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"map":[[0]],"players":[],"bombs":[],"explosions":[],"powerUps":[]}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}
}
