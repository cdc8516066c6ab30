// Package events defines the frames the server sends to clients.
package events

import (
	"encoding/json"

	"triviaroom/internal/players"
	"triviaroom/internal/questions"
)

type Type string

const (
	Ack          = Type("ack")
	LobbyUpdate  = Type("lobbyUpdate")
	HostChanged  = Type("hostChanged")
	Question     = Type("question")
	BuzzLocked   = Type("buzzLocked")
	BuzzResult   = Type("buzzResult")
	Reveal       = Type("reveal")
	GameFinished = Type("gameFinished")
)

// Event is one outbound frame. ID is set only on acknowledgements and echoes
// the request id.
type Event struct {
	Type Type  `json:"t"`
	ID   int64 `json:"id,omitempty"`
	Data any   `json:"d,omitempty"`
}

// ackFrame always carries id, even 0 for frames that could not be decoded.
type ackFrame struct {
	Type Type  `json:"t"`
	ID   int64 `json:"id"`
	Data any   `json:"d,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == Ack {
		return json.Marshal(ackFrame(e))
	}
	type frame Event
	return json.Marshal(frame(e))
}

type LobbyPayload struct {
	Players []players.View `json:"players"`
}

type HostPayload struct {
	HostID string `json:"hostId"`
	Name   string `json:"name"`
}

type QuestionPayload struct {
	Index         int               `json:"index"`
	Total         int               `json:"total"`
	Type          questions.Type    `json:"type"`
	Payload       questions.Payload `json:"payload"`
	TimeLimitMs   int64             `json:"timeLimitMs"`
	ServerStartAt int64             `json:"serverStartAt"`
}

type BuzzLockedPayload struct {
	BuzzerID string `json:"buzzerId"`
	Name     string `json:"name"`
}

type BuzzResultPayload struct {
	BuzzerID string `json:"buzzerId"`
	Name     string `json:"name"`
	Correct  bool   `json:"correct"`
	Gained   int    `json:"gained"`
}

type RevealPayload struct {
	questions.Key
	Leaderboard []players.View `json:"leaderboard"`
}

type FinishedPayload struct {
	Leaderboard []players.View `json:"leaderboard"`
}

func NewAck(id int64, data any) Event {
	return Event{Type: Ack, ID: id, Data: data}
}

func NewLobbyUpdate(views []players.View) Event {
	return Event{Type: LobbyUpdate, Data: LobbyPayload{Players: views}}
}
