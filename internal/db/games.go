package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GameRecord struct {
	ID        string
	RoomCode  string
	HostName  string
	Questions int
	StartedAt time.Time
	EndedAt   time.Time
	Players   []GamePlayer
}

// GamePlayer is one final leaderboard row. Rank starts at 1.
type GamePlayer struct {
	ConnID     string
	Name       string
	FinalScore int
	Rank       int
}

// RecordGame stores a finished game and its leaderboard in one transaction
// and returns the new game id.
func (d *DB) RecordGame(ctx context.Context, g GameRecord) (string, error) {
	id := uuid.NewString()

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, room_code, host_name, questions, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, g.RoomCode, g.HostName, g.Questions, g.StartedAt, g.EndedAt)
	if err != nil {
		return "", fmt.Errorf("inserting game: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_players (game_id, conn_id, name, final_score, rank)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range g.Players {
		if _, err := stmt.ExecContext(ctx, id, p.ConnID, p.Name, p.FinalScore, p.Rank); err != nil {
			return "", fmt.Errorf("inserting game player: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing game: %w", err)
	}
	return id, nil
}

// RecentGames returns the most recently finished games, newest first, with
// their leaderboards.
func (d *DB) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, room_code, host_name, questions, started_at, ended_at
		FROM games
		ORDER BY ended_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.ID, &g.RoomCode, &g.HostName, &g.Questions, &g.StartedAt, &g.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}

	for i := range games {
		players, err := d.gamePlayers(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Players = players
	}
	return games, nil
}

func (d *DB) gamePlayers(ctx context.Context, gameID string) ([]GamePlayer, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT conn_id, name, final_score, rank
		FROM game_players
		WHERE game_id = $1
		ORDER BY rank
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying game players: %w", err)
	}
	defer rows.Close()

	var players []GamePlayer
	for rows.Next() {
		var p GamePlayer
		if err := rows.Scan(&p.ConnID, &p.Name, &p.FinalScore, &p.Rank); err != nil {
			return nil, fmt.Errorf("scanning game player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
