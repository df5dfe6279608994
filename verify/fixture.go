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
	"fmt"
)

// Tile is a board cell code as understood by the game client.
type Tile int

const (
	TileEmpty Tile = 0
	TileBlock Tile = 1
	TileWall  Tile = 2
)

// CellSize is the rendered size of one board cell, in pixels. Player
// positions are expressed in pixels, everything else in cells.
const CellSize = 50

// Player is one entry of GameState.Players.
type Player struct {
	ID       string `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Lives    int    `json:"lives"`
	IsAlive  bool   `json:"isAlive"`
	Nickname string `json:"nickname"`
}

// Cell is a board coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bomb is a placed, not yet exploded bomb.
type Bomb struct {
	OwnerID string `json:"ownerId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// Explosion lists the cells covered by a detonation.
type Explosion struct {
	OwnerID string `json:"ownerId,omitempty"`
	Cells   []Cell `json:"cells"`
}

// PowerUp is a collectible lying on the board.
type PowerUp struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

// GameState is the START_GAME / GAME_STATE_UPDATE payload.
type GameState struct {
	Map        [][]Tile    `json:"map"`
	Players    []Player    `json:"players"`
	Bombs      []Bomb      `json:"bombs"`
	Explosions []Explosion `json:"explosions"`
	PowerUps   []PowerUp   `json:"powerUps"`
}

var (
	ErrEmptyMap      = errors.New("map is empty")
	ErrRaggedMap     = errors.New("map rows have different lengths")
	ErrUnknownTile   = errors.New("unknown tile code")
	ErrDuplicateID   = errors.New("duplicate player id")
	ErrMissingPlayer = errors.New("player id is empty")
)

// Validate checks that the state is something the client can render.
func (s *GameState) Validate() error {
	if len(s.Map) == 0 || len(s.Map[0]) == 0 {
		return ErrEmptyMap
	}
	width := len(s.Map[0])
	for y, row := range s.Map {
		if len(row) != width {
			return fmt.Errorf("row %d: %w", y, ErrRaggedMap)
		}
		for x, t := range row {
			if t < TileEmpty || t > TileWall {
				return fmt.Errorf("tile (%d,%d)=%d: %w", x, y, t, ErrUnknownTile)
			}
		}
	}
	seen := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.ID == "" {
			return ErrMissingPlayer
		}
		if seen[p.ID] {
			return fmt.Errorf("%q: %w", p.ID, ErrDuplicateID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Width returns the number of columns of the board.
func (s *GameState) Width() int {
	if len(s.Map) == 0 {
		return 0
	}
	return len(s.Map[0])
}

// Height returns the number of rows of the board.
func (s *GameState) Height() int {
	return len(s.Map)
}

// TileAt returns the tile at (x, y), or TileWall when out of bounds.
func (s *GameState) TileAt(x, y int) Tile {
	if y < 0 || y >= len(s.Map) || x < 0 || x >= len(s.Map[y]) {
		return TileWall
	}
	return s.Map[y][x]
}

// MarshalJSON keeps empty lists as [] so the client can iterate them.
func (s GameState) MarshalJSON() ([]byte, error) {
	type plain GameState
	p := plain(s)
	if p.Map == nil {
		p.Map = [][]Tile{}
	}
	if p.Players == nil {
		p.Players = []Player{}
	}
	if p.Bombs == nil {
		p.Bombs = []Bomb{}
	}
	if p.Explosions == nil {
		p.Explosions = []Explosion{}
	}
	if p.PowerUps == nil {
		p.PowerUps = []PowerUp{}
	}
	return json.Marshal(p)
}

// DotGridMap returns the 11x13 level used by the dot-grid check and by the
// stand-in host. Spawn corners are cleared of blocks.
func DotGridMap() [][]Tile {
	const (
		E = TileEmpty
		B = TileBlock
		W = TileWall
	)
	return [][]Tile{
		{W, W, W, W, W, W, W, W, W, W, W, W, W},
		{W, E, E, B, B, B, B, B, B, B, E, E, W},
		{W, E, W, B, W, B, W, B, W, B, W, E, W},
		{W, B, B, B, B, B, B, B, B, B, B, B, W},
		{W, B, W, B, W, B, W, B, W, B, W, B, W},
		{W, B, B, B, B, B, B, B, B, B, B, B, W},
		{W, B, W, B, W, B, W, B, W, B, W, B, W},
		{W, B, B, B, B, B, B, B, B, B, B, B, W},
		{W, E, W, B, W, B, W, B, W, B, W, E, W},
		{W, E, E, B, B, B, B, B, B, B, E, E, W},
		{W, W, W, W, W, W, W, W, W, W, W, W, W},
	}
}

// DotGridFixture is the state dispatched by the dot-grid check: the fixed
// level and a single player standing on the top-left spawn.
func DotGridFixture() *GameState {
	return &GameState{
		Map: DotGridMap(),
		Players: []Player{
			{ID: "player1", X: 50, Y: 50, Lives: 3, IsAlive: true, Nickname: "Jules"},
		},
		Bombs:      []Bomb{},
		Explosions: []Explosion{},
		PowerUps:   []PowerUp{},
	}
}
