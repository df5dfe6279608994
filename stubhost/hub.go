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

package stubhost

import (
	"encoding/json"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ttbt-io/bombcheck/verify"
)

// Message types sent by the client.
const (
	MsgJoinGame   = "JOIN_GAME"
	MsgMovePlayer = "MOVE_PLAYER"
	MsgPlaceBomb  = "PLACE_BOMB"
	MsgSendChat   = "SEND_CHAT_MESSAGE"
)

// Message types sent by the host.
const (
	MsgLobbyState  = "UPDATE_LOBBY_STATE"
	MsgCountdown   = "UPDATE_COUNTDOWN"
	MsgStartGame   = "START_GAME"
	MsgGameState   = "GAME_STATE_UPDATE"
	MsgChatMessage = "NEW_CHAT_MESSAGE"
	MsgGameOver    = "GAME_OVER"
	MsgError       = "ERROR"
)

// Lobby statuses.
const (
	StatusWaiting   = "waiting"
	StatusCountdown = "countdown"
	StatusInGame    = "in-game"
)

const (
	maxNicknameLength = 16
	maxChatLength     = 200
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newMessage(msgType string, payload any) Message {
	m := Message{Type: msgType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("newMessage(%s): %v", msgType, err)
			return Message{Type: MsgError, Payload: json.RawMessage(strconv.Quote("internal error"))}
		}
		m.Payload = b
	}
	return m
}

func errorMessage(text string) Message {
	return newMessage(MsgError, map[string]string{"message": text})
}

// LobbyPlayer is one seat of the lobby.
type LobbyPlayer struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// LobbyState is the UPDATE_LOBBY_STATE payload.
type LobbyState struct {
	Players    []LobbyPlayer `json:"players"`
	Countdown  *int          `json:"countdown"`
	Status     string        `json:"status"`
	MaxPlayers int           `json:"maxPlayers"`
}

// GameOver is the GAME_OVER payload. Winner is nil on a draw.
type GameOver struct {
	Winner *LobbyPlayer `json:"winner"`
}

// ChatMessage is the NEW_CHAT_MESSAGE payload.
type ChatMessage struct {
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

type joinPayload struct {
	Nickname string `json:"nickname"`
}

type movePayload struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type phase int

const (
	phaseLobby phase = iota
	phaseCountdown
	phaseGame
)

// hubRequest types
const (
	reqMessage = iota
	reqLobbyWaitOver
	reqCountdownTick
	reqFuse
	reqExplosionOver
)

type hubRequest struct {
	kind   int
	client *wsClient
	msg    Message
	gen    int
	owner  string
	cell   verify.Cell
}

type seat struct {
	client   *wsClient
	id       string
	nickname string
}

// Hub owns the lobby and the running match. All state is confined to the
// run goroutine; timers post back into requests.
type Hub struct {
	opts    Options
	matchID string

	clients    map[*wsClient]bool
	requests   chan hubRequest
	register   chan *wsClient
	unregister chan *wsClient
	quit       chan struct{}
	done       chan struct{}

	seats     []*seat
	phase     phase
	countdown int
	waiting   bool
	state     *verify.GameState
	// gen invalidates timers scheduled for an earlier lobby or match.
	gen int
}

func newHub(opts Options) *Hub {
	return &Hub{
		opts:       opts,
		clients:    make(map[*wsClient]bool),
		requests:   make(chan hubRequest, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.handleLeave(client)
			}
		case req := <-h.requests:
			h.handle(req)
		case <-h.quit:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// stop ends the run loop and waits for it.
func (h *Hub) stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// post delivers a timer event unless the hub has stopped.
func (h *Hub) post(req hubRequest) {
	select {
	case h.requests <- req:
	case <-h.quit:
	}
}

func (h *Hub) after(d time.Duration, req hubRequest) {
	req.gen = h.gen
	time.AfterFunc(d, func() { h.post(req) })
}

func (h *Hub) handle(req hubRequest) {
	// Messages can still be queued when their client has already been
	// unregistered and its send channel closed.
	if req.kind == reqMessage && !h.clients[req.client] {
		return
	}
	if req.kind != reqMessage && req.gen != h.gen {
		return
	}
	switch req.kind {
	case reqMessage:
		h.handleMessage(req.client, req.msg)
	case reqLobbyWaitOver:
		h.waiting = false
		if h.phase == phaseLobby && len(h.seats) >= 2 {
			h.startCountdown()
		}
	case reqCountdownTick:
		h.tick()
	case reqFuse:
		h.explode(req.owner, req.cell)
	case reqExplosionOver:
		h.clearExplosion(req.owner)
	}
}

func (h *Hub) handleMessage(c *wsClient, msg Message) {
	switch msg.Type {
	case MsgJoinGame:
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendJSON(errorMessage("invalid join request"))
			return
		}
		h.handleJoin(c, p.Nickname)
	case MsgMovePlayer:
		var p movePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendJSON(errorMessage("invalid move"))
			return
		}
		h.handleMove(c, p)
	case MsgPlaceBomb:
		h.handleBomb(c)
	case MsgSendChat:
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendJSON(errorMessage("invalid chat message"))
			return
		}
		h.handleChat(c, p.Message)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.sendJSON(errorMessage("unknown message type"))
	}
}

func (h *Hub) seatOf(c *wsClient) *seat {
	for _, s := range h.seats {
		if s.client == c {
			return s
		}
	}
	return nil
}

// freeID returns the lowest unused player number.
func (h *Hub) freeID() string {
	for n := 1; ; n++ {
		id := strconv.Itoa(n)
		taken := false
		for _, s := range h.seats {
			if s.id == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (h *Hub) handleJoin(c *wsClient, nickname string) {
	nickname = strings.TrimSpace(nickname)
	switch {
	case nickname == "":
		c.sendJSON(errorMessage("nickname is required"))
		return
	case utf8.RuneCountInString(nickname) > maxNicknameLength:
		c.sendJSON(errorMessage("nickname is too long"))
		return
	case h.seatOf(c) != nil:
		c.sendJSON(errorMessage("already joined"))
		return
	case h.phase == phaseGame:
		c.sendJSON(errorMessage("a match is in progress"))
		return
	case len(h.seats) >= h.opts.MaxPlayers:
		c.sendJSON(errorMessage("lobby is full"))
		return
	}

	s := &seat{client: c, id: h.freeID(), nickname: nickname}
	h.seats = append(h.seats, s)
	sortSeats(h.seats)
	h.debugf("Player %s joined as %q (client %s)", s.id, nickname, c.id)

	switch {
	case len(h.seats) >= h.opts.MaxPlayers && h.phase == phaseLobby:
		h.startCountdown()
		return
	case len(h.seats) >= 2 && h.phase == phaseLobby && !h.waiting:
		h.waiting = true
		h.after(h.opts.LobbyWait, hubRequest{kind: reqLobbyWaitOver})
	}
	h.broadcastLobby()
}

func (h *Hub) handleLeave(c *wsClient) {
	s := h.seatOf(c)
	if s == nil {
		return
	}
	h.debugf("Player %s (%q) left", s.id, s.nickname)
	if h.phase == phaseGame {
		s.client = nil
		for i := range h.state.Players {
			if h.state.Players[i].ID == s.id {
				h.state.Players[i].IsAlive = false
			}
		}
		h.broadcast(newMessage(MsgGameState, h.state))
		h.checkGameOver()
		return
	}

	h.removeSeat(s)
	if len(h.seats) < 2 && (h.phase == phaseCountdown || h.waiting) {
		h.resetLobby()
	}
	h.broadcastLobby()
}

func (h *Hub) removeSeat(s *seat) {
	for i, x := range h.seats {
		if x == s {
			h.seats = append(h.seats[:i], h.seats[i+1:]...)
			return
		}
	}
}

// sortSeats orders seats by player number.
func sortSeats(seats []*seat) {
	slices.SortFunc(seats, func(a, b *seat) int {
		x, _ := strconv.Atoi(a.id)
		y, _ := strconv.Atoi(b.id)
		return x - y
	})
}

// resetLobby abandons any countdown; seated players stay.
func (h *Hub) resetLobby() {
	h.gen++
	h.phase = phaseLobby
	h.waiting = false
	h.countdown = 0
	h.state = nil
}

func (h *Hub) lobbyState() LobbyState {
	ls := LobbyState{
		Players:    make([]LobbyPlayer, 0, len(h.seats)),
		Status:     StatusWaiting,
		MaxPlayers: h.opts.MaxPlayers,
	}
	for _, s := range h.seats {
		ls.Players = append(ls.Players, LobbyPlayer{ID: s.id, Nickname: s.nickname})
	}
	switch h.phase {
	case phaseCountdown:
		n := h.countdown
		ls.Countdown = &n
		ls.Status = StatusCountdown
	case phaseGame:
		ls.Status = StatusInGame
	}
	return ls
}

func (h *Hub) broadcastLobby() {
	h.broadcast(newMessage(MsgLobbyState, h.lobbyState()))
}

// broadcast sends msg to every seated player.
func (h *Hub) broadcast(msg Message) {
	for _, s := range h.seats {
		if s.client != nil {
			s.client.sendJSON(msg)
		}
	}
}

func (h *Hub) startCountdown() {
	h.gen++
	h.waiting = false
	if h.opts.Countdown <= 0 {
		h.startGame()
		return
	}
	h.phase = phaseCountdown
	h.countdown = h.opts.Countdown
	h.broadcastLobby()
	h.after(time.Second, hubRequest{kind: reqCountdownTick})
}

func (h *Hub) tick() {
	if h.phase != phaseCountdown {
		return
	}
	h.countdown--
	if h.countdown <= 0 {
		h.startGame()
		return
	}
	h.broadcast(newMessage(MsgCountdown, h.countdown))
	h.after(time.Second, hubRequest{kind: reqCountdownTick})
}

// spawn returns the starting cell of player n, clockwise from the top-left
// corner.
func spawn(id string, width, height int) verify.Cell {
	switch id {
	case "2":
		return verify.Cell{X: width - 2, Y: 1}
	case "3":
		return verify.Cell{X: width - 2, Y: height - 2}
	case "4":
		return verify.Cell{X: 1, Y: height - 2}
	default:
		return verify.Cell{X: 1, Y: 1}
	}
}

func (h *Hub) startGame() {
	h.gen++
	h.matchID = uuid.NewString()
	state := &verify.GameState{Map: verify.DotGridMap()}
	for _, s := range h.seats {
		c := spawn(s.id, state.Width(), state.Height())
		state.Players = append(state.Players, verify.Player{
			ID:       s.id,
			X:        c.X * verify.CellSize,
			Y:        c.Y * verify.CellSize,
			Lives:    h.opts.StartingLives,
			IsAlive:  true,
			Nickname: s.nickname,
		})
	}
	if err := state.Validate(); err != nil {
		log.Printf("startGame: %v", err)
		h.broadcast(errorMessage("could not start the match"))
		h.resetLobby()
		return
	}
	h.state = state
	h.phase = phaseGame
	log.Printf("Match %s started with %d players", h.matchID, len(h.seats))
	h.broadcast(newMessage(MsgStartGame, h.state))
}

// player returns the match entry of the seated client, if alive.
func (h *Hub) player(c *wsClient) *verify.Player {
	if h.phase != phaseGame {
		return nil
	}
	s := h.seatOf(c)
	if s == nil {
		return nil
	}
	for i := range h.state.Players {
		p := &h.state.Players[i]
		if p.ID == s.id && p.IsAlive {
			return p
		}
	}
	return nil
}

func cellOf(p *verify.Player) verify.Cell {
	return verify.Cell{X: p.X / verify.CellSize, Y: p.Y / verify.CellSize}
}

func (h *Hub) bombAt(c verify.Cell) bool {
	for _, b := range h.state.Bombs {
		if b.X == c.X && b.Y == c.Y {
			return true
		}
	}
	return false
}

func (h *Hub) handleMove(c *wsClient, m movePayload) {
	p := h.player(c)
	if p == nil {
		return
	}
	from := cellOf(p)
	to := from
	switch {
	case m.Left && !m.Right:
		to.X--
	case m.Right && !m.Left:
		to.X++
	case m.Up && !m.Down:
		to.Y--
	case m.Down && !m.Up:
		to.Y++
	}
	if to == from || h.state.TileAt(to.X, to.Y) != verify.TileEmpty || h.bombAt(to) {
		return
	}
	p.X, p.Y = to.X*verify.CellSize, to.Y*verify.CellSize
	h.broadcast(newMessage(MsgGameState, h.state))
}

func (h *Hub) handleBomb(c *wsClient) {
	p := h.player(c)
	if p == nil {
		return
	}
	for _, b := range h.state.Bombs {
		if b.OwnerID == p.ID {
			return
		}
	}
	at := cellOf(p)
	h.state.Bombs = append(h.state.Bombs, verify.Bomb{OwnerID: p.ID, X: at.X, Y: at.Y})
	h.debugf("Player %s placed a bomb at (%d,%d)", p.ID, at.X, at.Y)
	h.after(h.opts.FuseTime, hubRequest{kind: reqFuse, owner: p.ID, cell: at})
	h.broadcast(newMessage(MsgGameState, h.state))
}

// blast returns the cells covered by a bomb at c: the bomb cell and one
// cell in each direction, stopped by walls.
func blast(s *verify.GameState, c verify.Cell) []verify.Cell {
	cells := []verify.Cell{c}
	for _, d := range []verify.Cell{{X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 1, Y: 0}} {
		n := verify.Cell{X: c.X + d.X, Y: c.Y + d.Y}
		if s.TileAt(n.X, n.Y) != verify.TileWall {
			cells = append(cells, n)
		}
	}
	return cells
}

// victim picks who a detonation hurts: the first living opponent of owner,
// in player order.
func victim(s *verify.GameState, owner string) *verify.Player {
	for i := range s.Players {
		p := &s.Players[i]
		if p.ID != owner && p.IsAlive {
			return p
		}
	}
	return nil
}

func (h *Hub) explode(owner string, at verify.Cell) {
	if h.phase != phaseGame {
		return
	}
	bombs := h.state.Bombs[:0]
	for _, b := range h.state.Bombs {
		if b.OwnerID != owner {
			bombs = append(bombs, b)
		}
	}
	h.state.Bombs = bombs
	h.state.Explosions = append(h.state.Explosions, verify.Explosion{OwnerID: owner, Cells: blast(h.state, at)})

	if v := victim(h.state, owner); v != nil {
		v.Lives--
		if v.Lives <= 0 {
			v.Lives = 0
			v.IsAlive = false
		}
		h.debugf("Player %s hit player %s, %d lives left", owner, v.ID, v.Lives)
	}
	h.after(h.opts.ExplosionTime, hubRequest{kind: reqExplosionOver, owner: owner})
	h.broadcast(newMessage(MsgGameState, h.state))
	h.checkGameOver()
}

func (h *Hub) clearExplosion(owner string) {
	if h.phase != phaseGame {
		return
	}
	explosions := h.state.Explosions[:0]
	for _, e := range h.state.Explosions {
		if e.OwnerID != owner {
			explosions = append(explosions, e)
		}
	}
	h.state.Explosions = explosions
	h.broadcast(newMessage(MsgGameState, h.state))
}

func (h *Hub) checkGameOver() {
	var alive []*verify.Player
	for i := range h.state.Players {
		if h.state.Players[i].IsAlive {
			alive = append(alive, &h.state.Players[i])
		}
	}
	if len(alive) > 1 {
		return
	}
	var result GameOver
	if len(alive) == 1 {
		result.Winner = &LobbyPlayer{ID: alive[0].ID, Nickname: alive[0].Nickname}
		log.Printf("Match %s won by %s (%q)", h.matchID, alive[0].ID, alive[0].Nickname)
	} else {
		log.Printf("Match %s ended in a draw", h.matchID)
	}
	h.broadcast(newMessage(MsgGameOver, result))

	// Everyone goes back to the nickname screen to play again.
	h.seats = nil
	h.resetLobby()
}

func (h *Hub) handleChat(c *wsClient, text string) {
	s := h.seatOf(c)
	if s == nil {
		c.sendJSON(errorMessage("join the game to chat"))
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		text = string([]rune(text)[:maxChatLength])
	}
	h.broadcast(newMessage(MsgChatMessage, ChatMessage{Nickname: s.nickname, Message: text}))
}

func (h *Hub) debugf(format string, args ...any) {
	if h.opts.Debug {
		log.Printf(format, args...)
	}
}
