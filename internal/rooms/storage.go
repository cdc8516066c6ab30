package rooms

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"triviaroom/internal/events"
	"triviaroom/internal/metrics"
	"triviaroom/internal/questions"
	"triviaroom/internal/schedule"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	codeAttempts = 10

	defaultHostName   = "Host"
	defaultPlayerName = "Player"
)

type Options struct {
	Clock   clockwork.Clock
	Metrics metrics.Recorder
	// CodeLength defaults to DefaultCodeLength.
	CodeLength int
	// OnFinish is called under the room lock when a game ends. It must not
	// block or call back into the room.
	OnFinish func(Result)
}

// Store is the registry of live rooms, keyed by code. Lock order is
// Store.mu before Room.mu.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room

	bank     *questions.Bank
	cfg      Config
	sched    *schedule.Scheduler
	metrics  metrics.Recorder
	onFinish func(Result)
	newCode  func() (string, error)
}

func NewStore(bank *questions.Bank, cfg Config, opts Options) *Store {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoOp{}
	}
	if cfg.HostPolicy == "" {
		cfg.HostPolicy = HostPromote
	}
	codeLength := opts.CodeLength
	if codeLength == 0 {
		codeLength = DefaultCodeLength
	}
	return &Store{
		rooms:    make(map[string]*Room),
		bank:     bank,
		cfg:      cfg,
		sched:    schedule.New(opts.Clock),
		metrics:  rec,
		onFinish: opts.OnFinish,
		newCode:  func() (string, error) { return GenerateCode(codeLength) },
	}
}

// Create opens a room hosted by hostID and seats the host in it.
func (s *Store) Create(hostID, hostName string, sink chan<- events.Event) (*Room, JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range codeAttempts {
		code, err := s.newCode()
		if err != nil {
			return nil, JoinResult{}, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		room := newRoom(code, hostID, s.bank, s.cfg, s.sched, s.metrics, s.onFinish)
		res, err := room.join(hostID, displayName(hostName, defaultHostName), sink)
		if err != nil {
			return nil, JoinResult{}, err
		}
		s.rooms[code] = room
		s.metrics.RoomOpened()
		log.Info().Str("room", code).Str("conn", hostID).Msg("room created")
		return room, res, nil
	}
	return nil, JoinResult{}, fmt.Errorf("failed to generate unique room code after %d attempts", codeAttempts)
}

// Join seats a player in the room with the given code.
func (s *Store) Join(code, id, name string, sink chan<- events.Event) (*Room, JoinResult, error) {
	room, err := s.Lookup(code)
	if err != nil {
		return nil, JoinResult{}, err
	}
	res, err := room.join(id, displayName(name, defaultPlayerName), sink)
	if err != nil {
		return nil, JoinResult{}, err
	}
	return room, res, nil
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

// Lookup resolves a user-typed code, ignoring case and surrounding space.
func (s *Store) Lookup(code string) (*Room, error) {
	room := s.Get(strings.ToUpper(strings.TrimSpace(code)))
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Leave removes id from the room and tears the room down once it is empty.
func (s *Store) Leave(code, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return
	}
	if room.leave(id) {
		s.deleteLocked(code)
	}
}

func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		room.close()
		s.deleteLocked(code)
	}
}

func (s *Store) deleteLocked(code string) {
	delete(s.rooms, code)
	s.metrics.RoomClosed()
	log.Info().Str("room", code).Msg("room closed")
}

func (s *Store) List() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	return list
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Sweep closes rooms whose game finished more than maxAge ago and returns
// how many were removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.sched.Clock().Now().Add(-maxAge)
	removed := 0
	for code, room := range s.rooms {
		if room.finishedBefore(cutoff) {
			room.close()
			s.deleteLocked(code)
			removed++
		}
	}
	return removed
}

// Shutdown closes every room, cancelling pending reveals.
func (s *Store) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, room := range s.rooms {
		room.close()
		s.deleteLocked(code)
	}
}

func displayName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}
