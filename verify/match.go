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
	"fmt"

	"github.com/chromedp/chromedp"
)

const (
	// ScenarioMatch names the two-player check.
	ScenarioMatch = "match"
	// MatchScreenshot is written under Config.OutputDir.
	MatchScreenshot = "verification.png"

	// DOM contract of the game client.
	NicknamePlaceholder = "Enter your nickname"
	JoinButtonLabel     = "Join Game"
	BoardSelector       = ".board"
	AppSelector         = ".app-container"
	GameOverHeading     = "Game Over"
)

// LivesSelector addresses the lives counter of the n-th player.
func LivesSelector(n int) string {
	return fmt.Sprintf(".player-status.player-%d .lives", n)
}

// LivesText is what the lives counter shows for n lives.
func LivesText(n int) string {
	return fmt.Sprintf("Lives: %d", n)
}

// LobbyText is what the lobby shows with n of max players.
func LobbyText(n, max int) string {
	return fmt.Sprintf("Players: %d/%d", n, max)
}

// WinnerHeading is the heading naming the winner.
func WinnerHeading(nickname string) string {
	return nickname + " Wins!"
}

// MatchConfig describes the scripted match.
type MatchConfig struct {
	Config

	// Attacker joins first and bombs Target every round.
	Attacker string
	Target   string
	// TargetIndex is the player number of Target in the status bar.
	TargetIndex   int
	StartingLives int
	Rounds        int
	MaxPlayers    int

	// AttackKeys move the attacker next to the target.
	AttackKeys []string
	BombKey    string
	RetreatKey string
	ReturnKey  string
}

// DefaultMatchConfig is the standard attack choreography. It depends on the map
// layout of the game under test.
func DefaultMatchConfig(cfg Config) MatchConfig {
	return MatchConfig{
		Config:        cfg,
		Attacker:      "Winner",
		Target:        "Loser",
		TargetIndex:   2,
		StartingLives: 3,
		Rounds:        3,
		MaxPlayers:    4,
		AttackKeys:    []string{"ArrowRight", "ArrowRight", "ArrowRight"},
		BombKey:       "Space",
		RetreatKey:    "ArrowLeft",
		ReturnKey:     "ArrowRight",
	}
}

func (m MatchConfig) validate() error {
	switch {
	case m.Attacker == "" || m.Target == "":
		return fmt.Errorf("both nicknames are required")
	case m.Attacker == m.Target:
		return fmt.Errorf("nicknames must differ")
	case m.Rounds < 1:
		return fmt.Errorf("at least one round is required")
	case m.StartingLives != m.Rounds:
		return fmt.Errorf("the last of %d rounds must eliminate a player with %d lives", m.Rounds, m.StartingLives)
	case m.MaxPlayers < 2:
		return fmt.Errorf("max players must be at least 2")
	case m.TargetIndex < 1:
		return fmt.Errorf("target index must be positive")
	}
	return nil
}

// JoinGame walks one session through the nickname screen and waits for the
// lobby to report expected players.
func JoinGame(rec *Recorder, s *Session, cfg Config, nickname string, expected, maxPlayers int) error {
	t := cfg.Timings
	err := rec.Step(s, fmt.Sprintf("Join as %s", nickname),
		chromedp.Navigate(cfg.BaseURL),
		WaitPlaceholder(NicknamePlaceholder, t.Expect),
		TypeInto(NicknamePlaceholder, nickname),
		ClickButton(JoinButtonLabel, t.Expect),
		WaitText(LobbyText(expected, maxPlayers), t.Expect),
	)
	if err != nil {
		return err
	}
	rec.Logger.Logf("%s joined the lobby.", nickname)
	return nil
}

// RunMatch plays the scripted two-player match: both players join, the
// attacker bombs the target once per round while both sessions watch the
// target's lives drop, and both sessions must end on the same game-over
// screen naming the attacker.
func RunMatch(b *Browser, m MatchConfig) (*Report, error) {
	m.Config = m.Config.withDefaults()
	report := NewReport(ScenarioMatch, m.BaseURL)
	if err := m.validate(); err != nil {
		err = fmt.Errorf("invalid match config: %w", err)
		report.Finish(err)
		return report, err
	}
	rec := NewRecorder(report, m.OutputDir, m.Timings.StepTimeout, m.Logger)
	err := runMatch(b, m, rec)
	report.Finish(err)
	return report, err
}

func runMatch(b *Browser, m MatchConfig, rec *Recorder) error {
	t := m.Timings
	log := m.Logger

	attacker, err := b.NewSession(m.Attacker)
	if err != nil {
		return err
	}
	defer attacker.Close()
	target, err := b.NewSession(m.Target)
	if err != nil {
		return err
	}
	defer target.Close()
	both := []*Session{attacker, target}

	// 1. Both players join
	if err := JoinGame(rec, attacker, m.Config, m.Attacker, 1, m.MaxPlayers); err != nil {
		return err
	}
	if err := JoinGame(rec, target, m.Config, m.Target, 2, m.MaxPlayers); err != nil {
		return err
	}

	// 2. Wait for game to start
	if err := rec.Step(attacker, "Wait for game start", WaitVisible(BoardSelector, t.BoardWait)); err != nil {
		return err
	}
	log.Logf("Game started.")
	if err := rec.Step(attacker, "Focus game", Focus(AppSelector), chromedp.Sleep(t.Settle)); err != nil {
		return err
	}

	// 3. One bomb per round
	for round := 1; round <= m.Rounds; round++ {
		log.Logf("Round %d: %s attacking %s...", round, m.Attacker, m.Target)

		var approach chromedp.Tasks
		for i, key := range m.AttackKeys {
			if i > 0 {
				approach = append(approach, chromedp.Sleep(t.KeyGap))
			}
			approach = append(approach, PressKey(AppSelector, key))
		}
		approach = append(approach, chromedp.Sleep(t.Pause), PressKey(AppSelector, m.BombKey))
		if err := rec.Step(attacker, fmt.Sprintf("Round %d: approach and place bomb", round), approach); err != nil {
			return err
		}
		log.Logf("Round %d: Bomb placed.", round)

		if err := rec.Step(attacker, fmt.Sprintf("Round %d: retreat", round),
			PressKey(AppSelector, m.RetreatKey),
			chromedp.Sleep(t.Pause),
		); err != nil {
			return err
		}

		if round == m.Rounds {
			log.Logf("Round %d: Waiting for %s to be eliminated.", round, m.Target)
			continue
		}

		left := m.StartingLives - round
		for _, s := range both {
			if err := rec.Step(s, fmt.Sprintf("Round %d: %s has %d lives", round, m.Target, left),
				WaitTextEquals(LivesSelector(m.TargetIndex), LivesText(left), t.Expect),
			); err != nil {
				return err
			}
		}
		log.Logf("Round %d: %s has %d lives remaining. Correct.", round, m.Target, left)

		if err := rec.Step(attacker, fmt.Sprintf("Round %d: back to attack position", round),
			PressKey(AppSelector, m.ReturnKey),
			chromedp.Sleep(t.Pause),
		); err != nil {
			return err
		}
	}

	// 4. Game over, identically everywhere
	log.Logf("Verifying Game Over screen...")
	for _, s := range both {
		if err := rec.Step(s, "Game Over screen",
			WaitHeading(GameOverHeading, t.Expect),
			WaitHeading(WinnerHeading(m.Attacker), t.Expect),
		); err != nil {
			return err
		}
		log.Logf("Game Over screen verified for %s.", s.Name)
	}
	if err := rec.Step(attacker, "Same screen in every session", sameHeadingsAction(both...)); err != nil {
		return err
	}

	// 5. Take screenshot
	if err := rec.Screenshot(attacker, MatchScreenshot); err != nil {
		return err
	}
	log.Logf("Screenshot taken. Verification successful.")
	return nil
}
