// models/models.go
package models

import (
	"errors"
	"fmt"
	"time"
)

// GameStatus 对局状态
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusStarting  GameStatus = "starting"
	StatusPlaying   GameStatus = "playing"
	StatusPaused    GameStatus = "paused"
	StatusFinished  GameStatus = "finished"
	StatusCancelled GameStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are expected.
func (s GameStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// GameMode 对局模式
type GameMode string

const (
	ModeClassic    GameMode = "classic"
	ModeQuick      GameMode = "quick"
	ModeTournament GameMode = "tournament"
	ModeCustom     GameMode = "custom"
	ModeAI         GameMode = "ai"
	ModePractice   GameMode = "practice"
)

// PlayerColor 玩家颜色
type PlayerColor string

const (
	ColorRed    PlayerColor = "red"
	ColorBlue   PlayerColor = "blue"
	ColorGreen  PlayerColor = "green"
	ColorYellow PlayerColor = "yellow"
)

// Valid reports whether c is one of the four seat colors.
func (c PlayerColor) Valid() bool {
	switch c {
	case ColorRed, ColorBlue, ColorGreen, ColorYellow:
		return true
	}
	return false
}

// TokensPerPlayer is the number of tokens every seat owns.
const TokensPerPlayer = 4

// Token 棋子
type Token struct {
	ID         string      `json:"id"`
	PlayerID   string      `json:"playerId"`
	Color      PlayerColor `json:"color"`
	Position   int         `json:"position"`
	IsHome     bool        `json:"isHome"`
	IsSafe     bool        `json:"isSafe"`
	IsFinished bool        `json:"isFinished"`
}

// Player 座位
type Player struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId,omitempty"` // 空表示AI座位
	Username    string      `json:"username"`
	Color       PlayerColor `json:"color"`
	IsAI        bool        `json:"isAI"`
	IsReady     bool        `json:"isReady"`
	IsConnected bool        `json:"isConnected"`
	Tokens      []Token     `json:"tokens"`
	Score       int         `json:"score"`
	Moves       int         `json:"moves"`
}

// DiceState 骰子状态，整局共享
type DiceState struct {
	Value        int    `json:"value"`
	IsRolling    bool   `json:"isRolling"`
	CanRoll      bool   `json:"canRoll"`
	RollCount    int    `json:"rollCount"`
	LastRolledBy string `json:"lastRolledBy,omitempty"`
	RollHistory  []int  `json:"rollHistory"`
}

// GameSettings 创建房间时的设置
type GameSettings struct {
	MaxPlayers      int      `json:"maxPlayers"`
	TimeLimit       int      `json:"timeLimit,omitempty"`
	TurnTimeout     int      `json:"turnTimeout"`
	AllowSpectators bool     `json:"allowSpectators"`
	IsPrivate       bool     `json:"isPrivate"`
	Password        string   `json:"password,omitempty"`
	Mode            GameMode `json:"mode,omitempty"`
}

// Game 一局对局的完整快照
type Game struct {
	ID            string       `json:"id"`
	RoomCode      string       `json:"roomCode"`
	Status        GameStatus   `json:"status"`
	Mode          GameMode     `json:"mode,omitempty"`
	Settings      GameSettings `json:"settings"`
	Players       []Player     `json:"players"`
	CurrentPlayer int          `json:"currentPlayer"`
	Dice          DiceState    `json:"dice"`
	Winner        string       `json:"winner,omitempty"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	EndedAt       *time.Time   `json:"endedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy so that snapshots never share mutable slices.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Players = clonePlayers(g.Players)
	c.Dice = g.Dice.Clone()
	if g.StartedAt != nil {
		t := *g.StartedAt
		c.StartedAt = &t
	}
	if g.EndedAt != nil {
		t := *g.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Clone returns a copy of d with its own roll history.
func (d DiceState) Clone() DiceState {
	if d.RollHistory != nil {
		d.RollHistory = append(make([]int, 0, len(d.RollHistory)), d.RollHistory...)
	}
	return d
}

// Clone returns a copy of p with its own token slice.
func (p Player) Clone() Player {
	if p.Tokens != nil {
		p.Tokens = append(make([]Token, 0, len(p.Tokens)), p.Tokens...)
	}
	return p
}

func clonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}

// TurnIndexValid reports whether currentPlayer points at a seat whenever the game is being played.
func (g *Game) TurnIndexValid() bool {
	if g.Status != StatusPlaying {
		return true
	}
	return g.CurrentPlayer >= 0 && g.CurrentPlayer < len(g.Players)
}

// FindToken returns the token with the given id and the index of its owner.
func (g *Game) FindToken(tokenID string) (Token, int, bool) {
	for i, p := range g.Players {
		for _, t := range p.Tokens {
			if t.ID == tokenID {
				return t, i, true
			}
		}
	}
	return Token{}, -1, false
}

// PlayerByID returns the seat with the given id.
func (g *Game) PlayerByID(playerID string) (Player, bool) {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

var (
	ErrMissingID       = errors.New("game id is empty")
	ErrDuplicateColor  = errors.New("duplicate player color")
	ErrInvalidColor    = errors.New("invalid player color")
	ErrTokenCount      = errors.New("player must own exactly 4 tokens")
	ErrTokenState      = errors.New("token is both home and finished")
	ErrTokenOwner      = errors.New("token owner does not match seat")
	ErrTurnOutOfRange  = errors.New("current player index out of range")
	ErrWinnerNotSeated = errors.New("winner is not a seated player")
)

// Validate checks the structural invariants of a game snapshot.
func (g *Game) Validate() error {
	if g.ID == "" {
		return ErrMissingID
	}
	seen := make(map[PlayerColor]bool, len(g.Players))
	for _, p := range g.Players {
		if !p.Color.Valid() {
			return fmt.Errorf("player %s: %w", p.ID, ErrInvalidColor)
		}
		if seen[p.Color] {
			return fmt.Errorf("player %s (%s): %w", p.ID, p.Color, ErrDuplicateColor)
		}
		seen[p.Color] = true
		if len(p.Tokens) != TokensPerPlayer {
			return fmt.Errorf("player %s has %d tokens: %w", p.ID, len(p.Tokens), ErrTokenCount)
		}
		for _, t := range p.Tokens {
			if t.IsHome && t.IsFinished {
				return fmt.Errorf("token %s: %w", t.ID, ErrTokenState)
			}
			if t.PlayerID != p.ID || t.Color != p.Color {
				return fmt.Errorf("token %s: %w", t.ID, ErrTokenOwner)
			}
		}
	}
	if !g.TurnIndexValid() {
		return fmt.Errorf("index %d of %d players: %w", g.CurrentPlayer, len(g.Players), ErrTurnOutOfRange)
	}
	if g.Winner != "" {
		if _, ok := g.PlayerByID(g.Winner); !ok {
			return fmt.Errorf("winner %s: %w", g.Winner, ErrWinnerNotSeated)
		}
	}
	return nil
}

// GamePatch 部分更新，nil 字段表示未出现
type GamePatch struct {
	ID            string        `json:"id,omitempty"`
	RoomCode      *string       `json:"roomCode,omitempty"`
	Status        *GameStatus   `json:"status,omitempty"`
	Mode          *GameMode     `json:"mode,omitempty"`
	Settings      *GameSettings `json:"settings,omitempty"`
	Players       []Player      `json:"players,omitempty"`
	CurrentPlayer *int          `json:"currentPlayer,omitempty"`
	Dice          *DiceState    `json:"dice,omitempty"`
	Winner        *string       `json:"winner,omitempty"`
	StartedAt     *time.Time    `json:"startedAt,omitempty"`
	EndedAt       *time.Time    `json:"endedAt,omitempty"`
	UpdatedAt     *time.Time    `json:"updatedAt,omitempty"`
}

// PatchFromGame turns a full snapshot into a patch that overwrites every field.
func PatchFromGame(g *Game) GamePatch {
	c := g.Clone()
	p := GamePatch{
		ID:            c.ID,
		RoomCode:      &c.RoomCode,
		Status:        &c.Status,
		Mode:          &c.Mode,
		Settings:      &c.Settings,
		Players:       c.Players,
		CurrentPlayer: &c.CurrentPlayer,
		Dice:          &c.Dice,
		Winner:        &c.Winner,
		StartedAt:     c.StartedAt,
		EndedAt:       c.EndedAt,
		UpdatedAt:     &c.UpdatedAt,
	}
	if p.Players == nil {
		p.Players = []Player{}
	}
	return p
}

// Apply merges the present fields of p into a copy of g. The id is never overwritten.
func (p GamePatch) Apply(g *Game) *Game {
	out := g.Clone()
	if p.RoomCode != nil {
		out.RoomCode = *p.RoomCode
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Mode != nil {
		out.Mode = *p.Mode
	}
	if p.Settings != nil {
		out.Settings = *p.Settings
	}
	if p.Players != nil {
		out.Players = clonePlayers(p.Players)
	}
	if p.CurrentPlayer != nil {
		out.CurrentPlayer = *p.CurrentPlayer
	}
	if p.Dice != nil {
		out.Dice = p.Dice.Clone()
	}
	if p.Winner != nil {
		out.Winner = *p.Winner
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		out.StartedAt = &t
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		out.EndedAt = &t
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}

// PlayerPatch 座位的部分更新
type PlayerPatch struct {
	Username    *string `json:"username,omitempty"`
	IsReady     *bool   `json:"isReady,omitempty"`
	IsConnected *bool   `json:"isConnected,omitempty"`
	Score       *int    `json:"score,omitempty"`
	Moves       *int    `json:"moves,omitempty"`
}

// Apply merges the present fields of p into a copy of player.
func (p PlayerPatch) Apply(player Player) Player {
	out := player.Clone()
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.IsReady != nil {
		out.IsReady = *p.IsReady
	}
	if p.IsConnected != nil {
		out.IsConnected = *p.IsConnected
	}
	if p.Score != nil {
		out.Score = *p.Score
	}
	if p.Moves != nil {
		out.Moves = *p.Moves
	}
	return out
}

// GameRecord 归档的对局记录
type GameRecord struct {
	GameID    string    `json:"game_id"`
	RoomCode  string    `json:"room_code"`
	Status    string    `json:"status"`
	Winner    string    `json:"winner"`
	Snapshot  []byte    `json:"snapshot"` // JSON 编码的 Game
	EndedAt   time.Time `json:"ended_at"`
	CreatedAt time.Time `json:"created_at"`
}
