// Package gateway maps inbound client requests onto room operations. It knows
// nothing about the transport: connections are identified by an opaque id
// and receive events on a channel.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"triviaroom/internal/events"
	"triviaroom/internal/players"
	"triviaroom/internal/rooms"

	"github.com/rs/zerolog/log"
)

// Request types.
const (
	CreateRoom       = "createRoom"
	JoinRoom         = "joinRoom"
	StartGame        = "startGame"
	NextQuestion     = "nextQuestion"
	AnswerMCQ        = "answerMCQ"
	AnswerOrder      = "answerOrder"
	Buzz             = "buzz"
	SubmitBuzzAnswer = "submitBuzzAnswer"
)

var ErrBadRequest = errors.New("bad request")

// Request is one inbound frame.
type Request struct {
	Type string          `json:"t"`
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"d,omitempty"`
}

type session struct {
	out  chan<- events.Event
	room string
}

type Gateway struct {
	rooms *rooms.Store

	mu       sync.Mutex
	sessions map[string]*session
}

func New(store *rooms.Store) *Gateway {
	return &Gateway{
		rooms:    store,
		sessions: make(map[string]*session),
	}
}

// Connect registers a connection. Broadcasts for its room are delivered on out.
func (g *Gateway) Connect(connID string, out chan<- events.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[connID] = &session{out: out}
}

// Disconnect removes the connection from its room, if any. Once it returns
// nothing will be sent on the connection's channel.
func (g *Gateway) Disconnect(connID string) {
	g.mu.Lock()
	sess, ok := g.sessions[connID]
	delete(g.sessions, connID)
	g.mu.Unlock()

	if ok && sess.room != "" {
		g.rooms.Leave(sess.room, connID)
	}
}

// Sessions returns the number of connected clients.
func (g *Gateway) Sessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// HandleFrame decodes a raw frame and dispatches it.
func (g *Gateway) HandleFrame(connID string, frame []byte) events.Event {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		log.Debug().Str("conn", connID).Err(err).Msg("undecodable frame")
		return BadFrame()
	}
	return g.Handle(connID, req)
}

// BadFrame is the acknowledgement for a frame that carries no request id.
func BadFrame() events.Event {
	return events.NewAck(0, errorReply{Error: ErrorCode(ErrBadRequest)})
}

// Handle applies one request and returns its acknowledgement. Failures are
// reported in the acknowledgement and never affect other connections.
func (g *Gateway) Handle(connID string, req Request) events.Event {
	reply, err := g.dispatch(connID, req)
	if err != nil {
		log.Debug().Str("conn", connID).Str("type", req.Type).Err(err).Msg("request rejected")
		return events.NewAck(req.ID, errorReply{Error: ErrorCode(err)})
	}
	return events.NewAck(req.ID, reply)
}

func (g *Gateway) dispatch(connID string, req Request) (any, error) {
	sess := g.session(connID)
	if sess == nil {
		return nil, fmt.Errorf("%w: unknown connection", rooms.ErrNotAuthorized)
	}

	switch req.Type {
	case CreateRoom:
		var d createRoomData
		if err := decode(req.Data, &d); err != nil {
			return nil, err
		}
		return g.createRoom(connID, sess, d)

	case JoinRoom:
		var d joinRoomData
		if err := decode(req.Data, &d); err != nil {
			return nil, err
		}
		if d.RoomID == "" {
			return nil, fmt.Errorf("%w: roomId required", ErrBadRequest)
		}
		return g.joinRoom(connID, sess, d)

	case StartGame:
		room, err := g.roomFor(sess, req.Data, nil)
		if err != nil {
			return nil, err
		}
		if err := room.Start(connID); err != nil {
			return nil, err
		}
		return okReply{OK: true}, nil

	case NextQuestion:
		room, err := g.roomFor(sess, req.Data, nil)
		if err != nil {
			return nil, err
		}
		finished, err := room.Next(connID)
		if err != nil {
			return nil, err
		}
		return nextReply{OK: true, Finished: finished}, nil

	case AnswerMCQ:
		var d answerMCQData
		room, err := g.roomFor(sess, req.Data, &d)
		if err != nil {
			return nil, err
		}
		if d.ChoiceIndex == nil {
			return nil, fmt.Errorf("%w: choiceIndex required", ErrBadRequest)
		}
		res, err := room.AnswerChoice(connID, *d.ChoiceIndex)
		if err != nil {
			return nil, err
		}
		return answerReply{OK: true, Correct: res.Correct, Gained: res.Gained}, nil

	case AnswerOrder:
		var d answerOrderData
		room, err := g.roomFor(sess, req.Data, &d)
		if err != nil {
			return nil, err
		}
		if d.Order == nil {
			return nil, fmt.Errorf("%w: order required", ErrBadRequest)
		}
		res, err := room.AnswerOrder(connID, d.Order)
		if err != nil {
			return nil, err
		}
		return orderReply{OK: true, Matches: res.Matches, Total: res.Total, Gained: res.Gained}, nil

	case Buzz:
		room, err := g.roomFor(sess, req.Data, nil)
		if err != nil {
			return nil, err
		}
		res, err := room.Buzz(connID)
		if err != nil {
			return nil, err
		}
		if !res.Won {
			return buzzReply{OK: false, LockedBy: res.LockedBy}, nil
		}
		return buzzReply{OK: true, YouAreBuzzer: true}, nil

	case SubmitBuzzAnswer:
		var d submitBuzzData
		room, err := g.roomFor(sess, req.Data, &d)
		if err != nil {
			return nil, err
		}
		res, err := room.SubmitBuzzAnswer(connID, d.Answer)
		if err != nil {
			return nil, err
		}
		return answerReply{OK: true, Correct: res.Correct, Gained: res.Gained}, nil
	}

	return nil, fmt.Errorf("%w: unknown request type %q", ErrBadRequest, req.Type)
}

func (g *Gateway) createRoom(connID string, sess *session, d createRoomData) (any, error) {
	if err := g.checkUnseated(sess); err != nil {
		return nil, err
	}
	room, res, err := g.rooms.Create(connID, d.Name, sess.out)
	if err != nil {
		return nil, err
	}
	g.seat(connID, room.Code())
	return createReply{RoomID: room.Code(), IsHost: res.IsHost, Players: res.Players}, nil
}

func (g *Gateway) joinRoom(connID string, sess *session, d joinRoomData) (any, error) {
	if err := g.checkUnseated(sess); err != nil {
		return nil, err
	}
	room, res, err := g.rooms.Join(d.RoomID, connID, d.Name, sess.out)
	if err != nil {
		return nil, err
	}
	g.seat(connID, room.Code())
	return joinReply{OK: true, IsHost: res.IsHost, Players: res.Players}, nil
}

// checkUnseated fails when the connection already sits in a live room.
func (g *Gateway) checkUnseated(sess *session) error {
	g.mu.Lock()
	code := sess.room
	g.mu.Unlock()
	if code != "" && g.rooms.Get(code) != nil {
		return fmt.Errorf("%w: already in room %s", rooms.ErrInvalidState, code)
	}
	return nil
}

func (g *Gateway) seat(connID, code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.sessions[connID]; ok {
		sess.room = code
	}
}

func (g *Gateway) session(connID string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[connID]
}

// roomFor decodes data into dst, when given, and resolves the room the
// request targets. A missing roomId falls back to the connection's room.
func (g *Gateway) roomFor(sess *session, data json.RawMessage, dst roomTarget) (*rooms.Room, error) {
	if dst == nil {
		dst = &roomData{}
	}
	if err := decode(data, dst); err != nil {
		return nil, err
	}
	code := dst.roomID()
	if code == "" {
		g.mu.Lock()
		code = sess.room
		g.mu.Unlock()
	}
	if code == "" {
		return nil, rooms.ErrRoomNotFound
	}
	return g.rooms.Lookup(code)
}

func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// ErrorCode maps an operation error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, rooms.ErrGameAlreadyStarted):
		return "game_already_started"
	case errors.Is(err, rooms.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, rooms.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, rooms.ErrAlreadyAnswered):
		return "already_answered"
	case errors.Is(err, rooms.ErrNoActiveBuzzer):
		return "no_active_buzzer"
	}
	return "bad_request"
}

type roomTarget interface {
	roomID() string
}

type roomData struct {
	RoomID string `json:"roomId"`
}

func (d *roomData) roomID() string { return d.RoomID }

type createRoomData struct {
	Name string `json:"name"`
}

type joinRoomData struct {
	roomData
	Name string `json:"name"`
}

type answerMCQData struct {
	roomData
	ChoiceIndex *int `json:"choiceIndex"`
}

type answerOrderData struct {
	roomData
	Order []int `json:"order"`
}

type submitBuzzData struct {
	roomData
	Answer string `json:"answer"`
}

type errorReply struct {
	Error string `json:"error"`
}

type okReply struct {
	OK bool `json:"ok"`
}

type createReply struct {
	RoomID  string         `json:"roomId"`
	IsHost  bool           `json:"isHost"`
	Players []players.View `json:"players"`
}

type joinReply struct {
	OK      bool           `json:"ok"`
	IsHost  bool           `json:"isHost"`
	Players []players.View `json:"players"`
}

type nextReply struct {
	OK       bool `json:"ok"`
	Finished bool `json:"finished"`
}

type answerReply struct {
	OK      bool `json:"ok"`
	Correct bool `json:"correct"`
	Gained  int  `json:"gained"`
}

type orderReply struct {
	OK      bool `json:"ok"`
	Matches int  `json:"matches"`
	Total   int  `json:"total"`
	Gained  int  `json:"gained"`
}

type buzzReply struct {
	OK           bool   `json:"ok"`
	YouAreBuzzer bool   `json:"youAreBuzzer,omitempty"`
	LockedBy     string `json:"lockedBy,omitempty"`
}
