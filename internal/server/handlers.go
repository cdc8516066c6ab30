package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"triviaroom/internal/db"
	"triviaroom/internal/metrics"
	"triviaroom/internal/rooms"
	"triviaroom/internal/wshub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultGamesLimit = 20
	maxGamesLimit     = 100
)

// Archive persists finished games.
type Archive interface {
	RecordGame(ctx context.Context, g db.GameRecord) (string, error)
	RecentGames(ctx context.Context, limit int) ([]db.GameRecord, error)
	Ping(ctx context.Context) error
}

type Server struct {
	Rooms   *rooms.Store
	Hub     *wshub.Hub
	Metrics *metrics.Prometheus
	Archive Archive // nil if no database configured
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("writing response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Archive.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": s.Rooms.Len()})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.Rooms.Lookup(chi.URLParam(r, "code"))
	if errors.Is(err, rooms.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room_not_found"})
		return
	}
	writeJSON(w, http.StatusOK, room.Summary())
}

type gameView struct {
	ID        string           `json:"id"`
	RoomCode  string           `json:"roomId"`
	HostName  string           `json:"hostName"`
	Questions int              `json:"questions"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   time.Time        `json:"endedAt"`
	Players   []gamePlayerView `json:"leaderboard"`
}

type gamePlayerView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// handleGames lists recently archived games.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.Archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive_disabled"})
		return
	}

	limit := defaultGamesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
			return
		}
		limit = min(n, maxGamesLimit)
	}

	games, err := s.Archive.RecentGames(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("listing archived games")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db_error"})
		return
	}

	views := make([]gameView, 0, len(games))
	for _, g := range games {
		v := gameView{
			ID:        g.ID,
			RoomCode:  g.RoomCode,
			HostName:  g.HostName,
			Questions: g.Questions,
			StartedAt: g.StartedAt,
			EndedAt:   g.EndedAt,
			Players:   make([]gamePlayerView, 0, len(g.Players)),
		}
		for _, p := range g.Players {
			v.Players = append(v.Players, gamePlayerView{Name: p.Name, Score: p.FinalScore, Rank: p.Rank})
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
