// Package store persists conversation state in Postgres. The engine owns
// the data; this layer only loads and saves whole snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecristovao/pagbot/internal/conversation"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations creates the conversations table.
func (s *Store) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			user_id TEXT PRIMARY KEY,
			order_id TEXT,
			current_step TEXT NOT NULL,
			state JSONB NOT NULL,
			payment_start_time TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_order_id ON conversations(order_id);
		CREATE INDEX IF NOT EXISTS idx_conversations_step ON conversations(current_step);
	`)
	return err
}

func (s *Store) Load(ctx context.Context, userID string) (*conversation.State, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM conversations WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return unmarshalState(raw)
}

func (s *Store) Save(ctx context.Context, st *conversation.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", st.UserID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, order_id, current_step, state, payment_start_time, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE
		 SET order_id = EXCLUDED.order_id,
			 current_step = EXCLUDED.current_step,
			 state = EXCLUDED.state,
			 payment_start_time = EXCLUDED.payment_start_time,
			 updated_at = EXCLUDED.updated_at`,
		st.UserID, nullable(st.OrderID), string(st.CurrentStep), raw, st.PaymentStartTime, st.UpdatedAt,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE user_id = $1`, userID)
	return err
}

// ListActive returns every in-flight conversation, most recent first.
func (s *Store) ListActive(ctx context.Context) ([]*conversation.State, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStates(rows)
}

func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]*conversation.State, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM conversations WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStates(rows)
}

// ListAwaitingPayment returns conversations sitting in WaitingForPayment
// whose payment window opened before the cutoff. Used by the reminder sweep.
func (s *Store) ListAwaitingPayment(ctx context.Context, startedBefore time.Time) ([]*conversation.State, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM conversations
		 WHERE current_step = $1 AND payment_start_time IS NOT NULL AND payment_start_time < $2`,
		string(conversation.StepWaitingForPayment), startedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStates(rows)
}

func scanStates(rows pgx.Rows) ([]*conversation.State, error) {
	var out []*conversation.State
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		st, err := unmarshalState(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func unmarshalState(raw []byte) (*conversation.State, error) {
	var st conversation.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return &st, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
