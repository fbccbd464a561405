package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
	"go.uber.org/zap"
)

// MatchSummary is the persisted record of one finished match.
type MatchSummary struct {
	MatchID    string
	WinnerID   string
	Rounds     int
	StartedAt  time.Time
	FinishedAt time.Time
	Players    []PlayerSummary
	Challenges []game.ChallengeRecord
}

// PlayerSummary is one player's final line in a match.
type PlayerSummary struct {
	PlayerID string
	Name     string
	Kind     game.PlayerKind
	Score    int
	Stats    game.PlayerStats
}

// MatchRepository persists finished matches. Safe to use with a nil DB;
// every method becomes a no-op.
type MatchRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMatchRepository creates a repository over db, which may be nil.
func NewMatchRepository(db *DB, logger *zap.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

// SaveMatch writes the summary, per-player lines and challenge history in
// one transaction.
func (r *MatchRepository) SaveMatch(ctx context.Context, summary MatchSummary) error {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO matches (id, winner_id, rounds, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		summary.MatchID, summary.WinnerID, summary.Rounds, summary.StartedAt, summary.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for _, p := range summary.Players {
		_, err = tx.Exec(ctx,
			`INSERT INTO match_players (
				match_id, player_id, name, kind, score,
				cards_played, bluffs_attempted, bluffs_caught,
				challenges_made, challenges_won,
				battles_won, battles_lost, battles_tied
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			summary.MatchID, p.PlayerID, p.Name, string(p.Kind), p.Score,
			p.Stats.CardsPlayed, p.Stats.BluffsAttempted, p.Stats.BluffsCaught,
			p.Stats.ChallengesMade, p.Stats.ChallengesWon,
			p.Stats.BattlesWon, p.Stats.BattlesLost, p.Stats.BattlesTied)
		if err != nil {
			return fmt.Errorf("failed to insert player summary: %w", err)
		}
	}

	for _, c := range summary.Challenges {
		_, err = tx.Exec(ctx,
			`INSERT INTO match_challenges (
				match_id, challenger_id, defender_id, card_id,
				claimed_type, actual_type, result, points_lost, occurred_at
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			summary.MatchID, c.ChallengerID, c.DefendingPlayerID, c.CardID,
			string(c.ClaimedType), string(c.ActualType), string(c.Result),
			c.PointsChanged, c.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert challenge record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}

	r.logger.Info("match persisted",
		zap.String("match_id", summary.MatchID),
		zap.String("winner_id", summary.WinnerID),
		zap.Int("rounds", summary.Rounds),
	)
	return nil
}

// RecentMatches returns the newest finished matches, most recent first.
func (r *MatchRepository) RecentMatches(ctx context.Context, limit int) ([]MatchSummary, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.pool.Query(ctx,
		`SELECT id, COALESCE(winner_id, ''), rounds, started_at, finished_at
		 FROM matches ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var s MatchSummary
		if err := rows.Scan(&s.MatchID, &s.WinnerID, &s.Rounds, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
