// Package protocol defines the JSON message envelope and payloads
// spoken over the room WebSocket. Every frame, both directions, is
// {"type": <string>, "data": <object>}.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/berryhq/berrypoker/internal/poker"
)

// Client to server message types.
const (
	TypeSpectate       = "spectate"
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypeStartGame      = "start_game"
	TypeAction         = "action"
	TypeSitOut         = "sit_out"
	TypeChat           = "chat"
	TypeAddChips       = "add_chips"
	TypeRunTwiceChoice = "run_twice_choice"
	TypeWebRTCOffer    = "webrtc_offer"
	TypeWebRTCAnswer   = "webrtc_answer"
	TypeWebRTCICE      = "webrtc_ice"
)

// Server to client message types.
const (
	TypeSpectating         = "spectating"
	TypeJoined             = "joined"
	TypePlayerJoined       = "player_joined"
	TypePlayerLeft         = "player_left"
	TypePlayerDisconnected = "player_disconnected"
	TypeGameState          = "game_state"
	TypeHandStarted        = "hand_started"
	TypePlayerAction       = "player_action"
	TypeHandEnded          = "hand_ended"
	TypeRunTwicePrompt     = "run_twice_prompt"
	TypeRunTwiceChosen     = "run_twice_choice_made"
	TypeError              = "error"
)

// Message is the wire envelope. Data stays raw until the type-keyed
// dispatch picks a payload struct.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// New builds an envelope around a payload.
func New(msgType string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Data: data}, nil
}

// MustNew is New for payloads that cannot fail to marshal.
func MustNew(msgType string, payload any) *Message {
	msg, err := New(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Parse decodes one inbound frame.
func Parse(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("malformed message: missing type")
	}
	return &msg, nil
}

// Decode unmarshals the envelope payload into out.
func (m *Message) Decode(out any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: missing data", m.Type)
	}
	if err := json.Unmarshal(m.Data, out); err != nil {
		return fmt.Errorf("%s: bad payload: %w", m.Type, err)
	}
	return nil
}

// Inbound payloads.

type Spectate struct {
	PlayerName string `json:"player_name"`
}

type Join struct {
	PlayerName string `json:"player_name"`
	Seat       *int   `json:"seat,omitempty"`
	BuyIn      int    `json:"buy_in"`
}

type Action struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type Chat struct {
	Message string `json:"message"`
}

type AddChips struct {
	Amount int `json:"amount"`
}

type RunTwiceChoice struct {
	RunTwice bool `json:"run_twice"`
}

// Signal is the inspected part of a WebRTC passthrough frame; the raw
// envelope is forwarded to the target untouched.
type Signal struct {
	Target string `json:"target"`
	From   string `json:"from,omitempty"`
}

// Outbound payloads.

type Spectating struct {
	RoomID string `json:"room_id"`
}

type Joined struct {
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
	Stack      int    `json:"stack"`
}

type PlayerJoined struct {
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
	Stack      int    `json:"stack"`
}

type PlayerLeft struct {
	PlayerName string `json:"player_name"`
}

type PlayerDisconnected struct {
	PlayerName string `json:"player_name"`
}

type HandStarted struct {
	HandNumber int `json:"hand_number"`
}

type PlayerAction struct {
	PlayerName string `json:"player_name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount,omitempty"`
}

type ChatBroadcast struct {
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

type RunTwicePrompt struct {
	Eligible []string `json:"eligible"`
}

type RunTwiceChosen struct {
	PlayerName string   `json:"player_name"`
	RunTwice   bool     `json:"run_twice"`
	WaitingFor []string `json:"waiting_for"`
}

type Error struct {
	Message string `json:"message"`
}

// PlayerView is the public projection of a seated player inside
// game_state. HoleCards is set only for the recipient's own player, or
// for everyone still in the hand at showdown.
type PlayerView struct {
	Name       string       `json:"name"`
	Seat       int          `json:"seat"`
	Stack      int          `json:"stack"`
	CurrentBet int          `json:"current_bet"`
	TotalBet   int          `json:"total_bet"`
	Folded     bool         `json:"folded"`
	AllIn      bool         `json:"all_in"`
	SittingOut bool         `json:"sitting_out"`
	Position   string       `json:"position,omitempty"`
	HasCards   bool         `json:"has_cards"`
	HoleCards  []poker.Card `json:"hole_cards,omitempty"`
}

// GameState is the per-recipient authoritative state view.
type GameState struct {
	RoomID            string              `json:"room_id"`
	SmallBlind        int                 `json:"small_blind"`
	BigBlind          int                 `json:"big_blind"`
	MinBuyIn          int                 `json:"min_buy_in"`
	MaxBuyIn          int                 `json:"max_buy_in"`
	Phase             string              `json:"phase"`
	CommunityCards    []poker.Card        `json:"community_cards"`
	Pot               int                 `json:"pot"`
	CurrentBet        int                 `json:"current_bet"`
	MinRaise          int                 `json:"min_raise"`
	CallAmount        int                 `json:"call_amount"`
	CurrentPlayerSeat *int                `json:"current_player_seat"`
	DealerSeat        *int                `json:"dealer_seat"`
	HandNumber        int                 `json:"hand_number"`
	Players           []PlayerView        `json:"players"`
	YourCards         []poker.Card        `json:"your_cards,omitempty"`
	ValidActions      []poker.ValidAction `json:"valid_actions,omitempty"`
	LastHandResult    *poker.HandOutcome  `json:"last_hand_result,omitempty"`
}

// HandEnded is the hand settlement broadcast.
type HandEnded struct {
	HandNumber   int                   `json:"hand_number"`
	Winners      []string              `json:"winners"`
	Pot          int                   `json:"pot"`
	Pots         []poker.Pot           `json:"pots,omitempty"`
	HandResults  []poker.PlayerOutcome `json:"hand_results,omitempty"`
	PlayerStacks map[string]int        `json:"player_stacks"`
	RunTwice     bool                  `json:"run_twice,omitempty"`
	FirstRun     *poker.RunOutcome     `json:"first_run,omitempty"`
	SecondRun    *poker.RunOutcome     `json:"second_run,omitempty"`
}
