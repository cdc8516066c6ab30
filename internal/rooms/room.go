package rooms

import (
	"fmt"
	"sync"
	"time"

	"triviaroom/internal/broadcast"
	"triviaroom/internal/events"
	"triviaroom/internal/metrics"
	"triviaroom/internal/players"
	"triviaroom/internal/questions"
	"triviaroom/internal/schedule"

	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusLobby    = Status("lobby")
	StatusInGame   = Status("in_game")
	StatusFinished = Status("finished")
)

type HostPolicy string

const (
	// HostPromote hands hostship to the earliest-joined remaining player.
	HostPromote = HostPolicy("promote")
	// HostKeep never reassigns; a room whose host left cannot advance.
	HostKeep = HostPolicy("keep")
)

type Config struct {
	// SettleOffset is added to the broadcast time so that every client's
	// locally computed deadline matches the server's.
	SettleOffset time.Duration
	// GracePeriod extends the reveal past the time limit to admit
	// last-moment submissions.
	GracePeriod          time.Duration
	HostPolicy           HostPolicy
	ReleaseBuzzerOnLeave bool
}

func DefaultConfig() Config {
	return Config{
		SettleOffset: 800 * time.Millisecond,
		GracePeriod:  time.Second,
		HostPolicy:   HostPromote,
	}
}

// Result summarizes a finished game.
type Result struct {
	RoomCode    string
	HostName    string
	Questions   int
	StartedAt   time.Time
	EndedAt     time.Time
	Leaderboard []players.View
}

// JoinResult is what a new member learns about the room.
type JoinResult struct {
	IsHost  bool
	Players []players.View
}

// Summary is a read-only snapshot of a room.
type Summary struct {
	Code     string `json:"roomId"`
	Status   Status `json:"status"`
	Players  int    `json:"players"`
	Question int    `json:"question"`
	Total    int    `json:"total"`
}

// Room is one game session. Every operation holds the room lock for its whole
// duration, so operations on a room apply one at a time in arrival order.
type Room struct {
	mu        sync.Mutex
	code      string
	hostID    string
	status    Status
	cursor    int
	roster    *players.Roster
	buzzer    string
	sentAt    time.Time
	startedAt time.Time
	endedAt   time.Time
	revealed  bool
	closed    bool

	reveal     *schedule.Task
	generation uint64

	bank     *questions.Bank
	cfg      Config
	sched    *schedule.Scheduler
	out      *broadcast.Broadcaster
	metrics  metrics.Recorder
	onFinish func(Result)
}

func newRoom(code, hostID string, bank *questions.Bank, cfg Config, sched *schedule.Scheduler, rec metrics.Recorder, onFinish func(Result)) *Room {
	return &Room{
		code:     code,
		hostID:   hostID,
		status:   StatusLobby,
		roster:   players.NewRoster(),
		bank:     bank,
		cfg:      cfg,
		sched:    sched,
		out:      broadcast.NewBroadcaster(),
		metrics:  rec,
		onFinish: onFinish,
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Buzzer returns the connection holding the buzzer lock, or "".
func (r *Room) Buzzer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buzzer
}

// Players returns the roster in join order.
func (r *Room) Players() []players.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster.Views(r.hostID)
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{
		Code:    r.code,
		Status:  r.status,
		Players: r.roster.Len(),
		Total:   r.bank.Len(),
	}
	if r.status != StatusLobby {
		s.Question = min(r.cursor+1, r.bank.Len())
	}
	return s
}

func (r *Room) join(id, name string, sink chan<- events.Event) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomNotFound
	}
	if r.status != StatusLobby {
		return JoinResult{}, ErrGameAlreadyStarted
	}
	if r.roster.Get(id) != nil {
		return JoinResult{}, fmt.Errorf("%w: already seated in room %s", ErrInvalidState, r.code)
	}

	r.roster.Add(id, name)
	if sink != nil {
		r.out.Subscribe(id, sink)
	}
	r.metrics.PlayerJoined()

	views := r.roster.Views(r.hostID)
	r.out.Broadcast(events.NewLobbyUpdate(views))
	log.Info().Str("room", r.code).Str("conn", id).Str("name", name).Msg("player joined")

	return JoinResult{IsHost: id == r.hostID, Players: views}, nil
}

// leave removes a member and reports whether the roster is now empty. An
// emptied room is closed and rejects every further operation.
func (r *Room) leave(id string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.roster.Remove(id) {
		return r.closed
	}
	r.out.Unsubscribe(id)
	r.metrics.PlayerLeft()
	log.Info().Str("room", r.code).Str("conn", id).Msg("player left")

	if r.roster.Len() == 0 {
		r.closeLocked()
		return true
	}

	if id == r.hostID && r.cfg.HostPolicy == HostPromote {
		next := r.roster.First()
		r.hostID = next.ID
		r.out.Broadcast(events.Event{Type: events.HostChanged, Data: events.HostPayload{HostID: next.ID, Name: next.Name}})
		log.Info().Str("room", r.code).Str("conn", next.ID).Msg("host promoted")
	}

	if id == r.buzzer && r.cfg.ReleaseBuzzerOnLeave {
		r.buzzer = ""
		r.out.Broadcast(events.Event{Type: events.BuzzLocked, Data: events.BuzzLockedPayload{}})
	}

	r.out.Broadcast(events.NewLobbyUpdate(r.roster.Views(r.hostID)))
	return false
}

// finishedBefore reports whether the game ended before t.
func (r *Room) finishedBefore(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusFinished && r.endedAt.Before(t)
}

func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	for _, p := range r.roster.List() {
		r.out.Unsubscribe(p.ID)
		r.metrics.PlayerLeft()
	}
	r.reveal.Cancel()
	r.reveal = nil
}

// Start moves the room from the lobby into its first question.
func (r *Room) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHost(id); err != nil {
		return err
	}
	if r.status != StatusLobby {
		return fmt.Errorf("%w: game is %s", ErrInvalidState, r.status)
	}

	r.status = StatusInGame
	r.cursor = 0
	r.startedAt = r.sched.Clock().Now()
	log.Info().Str("room", r.code).Int("questions", r.bank.Len()).Msg("game started")

	r.enterCursorLocked()
	return nil
}

// Next advances to the following question, finishing the game after the
// last one. It reports whether the game finished.
func (r *Room) Next(id string) (finished bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHost(id); err != nil {
		return false, err
	}
	if r.status != StatusInGame {
		return false, fmt.Errorf("%w: game is %s", ErrInvalidState, r.status)
	}

	r.cursor++
	r.enterCursorLocked()
	return r.status == StatusFinished, nil
}

func (r *Room) authorizeHost(id string) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if id != r.hostID || r.roster.Get(id) == nil {
		return fmt.Errorf("%w: only the host can do that", ErrNotAuthorized)
	}
	return nil
}

func (r *Room) enterCursorLocked() {
	q, ok := r.bank.At(r.cursor)
	if !ok {
		r.finishLocked()
		return
	}
	r.beginCycleLocked(q)
}

func (r *Room) beginCycleLocked(q *questions.Question) {
	r.buzzer = ""
	r.revealed = false
	r.roster.ResetAnswered()

	now := r.sched.Clock().Now()
	r.sentAt = now.Add(r.cfg.SettleOffset)

	r.out.Broadcast(events.Event{Type: events.Question, Data: events.QuestionPayload{
		Index:         r.cursor + 1,
		Total:         r.bank.Len(),
		Type:          q.Type,
		Payload:       q.Payload(),
		TimeLimitMs:   q.TimeLimit.Milliseconds(),
		ServerStartAt: r.sentAt.UnixMilli(),
	}})

	r.reveal.Cancel()
	r.generation++
	gen := r.generation
	r.reveal = r.sched.After(q.TimeLimit+r.cfg.GracePeriod, func() { r.fireReveal(gen) })

	log.Info().Str("room", r.code).Int("question", r.cursor+1).Str("type", string(q.Type)).Msg("question sent")
}

// fireReveal publishes the answer key and standings for the cycle identified
// by gen. A superseded cycle is ignored.
func (r *Room) fireReveal(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.status != StatusInGame || r.generation != gen || r.revealed {
		return
	}
	q, ok := r.bank.At(r.cursor)
	if !ok {
		return
	}
	r.revealed = true
	r.reveal = nil

	r.out.Broadcast(events.Event{Type: events.Reveal, Data: events.RevealPayload{
		Key:         q.Key(),
		Leaderboard: players.Leaderboard(r.roster.Views(r.hostID)),
	}})
	r.metrics.RevealFired()
	log.Info().Str("room", r.code).Int("question", r.cursor+1).Msg("answer revealed")
}

func (r *Room) finishLocked() {
	r.status = StatusFinished
	r.cursor = r.bank.Len()
	r.buzzer = ""
	r.reveal.Cancel()
	r.reveal = nil

	r.endedAt = r.sched.Clock().Now()

	board := players.Leaderboard(r.roster.Views(r.hostID))
	r.out.Broadcast(events.Event{Type: events.GameFinished, Data: events.FinishedPayload{Leaderboard: board}})
	r.metrics.GameFinished()
	log.Info().Str("room", r.code).Msg("game finished")

	if r.onFinish != nil {
		hostName := ""
		if h := r.roster.Get(r.hostID); h != nil {
			hostName = h.Name
		}
		r.onFinish(Result{
			RoomCode:    r.code,
			HostName:    hostName,
			Questions:   r.bank.Len(),
			StartedAt:   r.startedAt,
			EndedAt:     r.endedAt,
			Leaderboard: board,
		})
	}
}
