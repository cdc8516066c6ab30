package server

import (
	"context"
	"time"

	"triviaroom/internal/db"
	"triviaroom/internal/rooms"

	"github.com/rs/zerolog/log"
)

const archiveTimeout = 5 * time.Second

// enqueueResult hands finished games to the archive writer. It runs under the
// room lock, so a full buffer drops the result instead of blocking.
func enqueueResult(buffer chan<- rooms.Result) func(rooms.Result) {
	return func(res rooms.Result) {
		select {
		case buffer <- res:
		default:
			log.Warn().Str("room", res.RoomCode).Msg("archive buffer full, dropping game result")
		}
	}
}

// archiveWriter stores results until buffer is closed. Failures are logged
// and never reach players.
func archiveWriter(archive Archive, buffer <-chan rooms.Result) {
	for res := range buffer {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		id, err := archive.RecordGame(ctx, toRecord(res))
		cancel()
		if err != nil {
			log.Error().Str("room", res.RoomCode).Err(err).Msg("archiving game failed")
			continue
		}
		log.Info().Str("room", res.RoomCode).Str("game", id).Msg("game archived")
	}
}

func toRecord(res rooms.Result) db.GameRecord {
	rec := db.GameRecord{
		RoomCode:  res.RoomCode,
		HostName:  res.HostName,
		Questions: res.Questions,
		StartedAt: res.StartedAt,
		EndedAt:   res.EndedAt,
		Players:   make([]db.GamePlayer, 0, len(res.Leaderboard)),
	}
	for i, p := range res.Leaderboard {
		rec.Players = append(rec.Players, db.GamePlayer{
			ConnID:     p.ID,
			Name:       p.Name,
			FinalScore: p.Score,
			Rank:       i + 1,
		})
	}
	return rec
}
