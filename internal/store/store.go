// Package store persists charge statements in Redis as JSON documents keyed
// by statement id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/statement"
)

// ErrNotFound is returned by Get when no statement exists under the id.
var ErrNotFound = errors.New("store: statement not found")

// Store reads and writes statements. Writes in bulk go through a single
// pipeline round trip.
type Store struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

// New returns a Store with the default key prefix.
func New(r *redis.Client) *Store {
	return &Store{R: r, Prefix: "statement"}
}

func (s *Store) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "statement"
	}
	return prefix + ":" + id
}

// Put stores one statement under its id.
func (s *Store) Put(ctx context.Context, st *statement.Statement) error {
	if s.R == nil {
		return errors.New("store: redis client not configured")
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", st.ID, err)
	}
	if err := s.R.Set(ctx, s.key(st.ID), payload, s.TTL).Err(); err != nil {
		return fmt.Errorf("store: put %s: %w", st.ID, err)
	}
	return nil
}

// PutBatch stores a batch of statements in one pipeline round trip.
func (s *Store) PutBatch(ctx context.Context, batch []*statement.Statement) error {
	if s.R == nil {
		return errors.New("store: redis client not configured")
	}
	if len(batch) == 0 {
		return nil
	}
	pipe := s.R.Pipeline()
	for _, st := range batch {
		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", st.ID, err)
		}
		pipe.Set(ctx, s.key(st.ID), payload, s.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: put batch: %w", err)
	}
	return nil
}

// Get fetches a statement by id.
func (s *Store) Get(ctx context.Context, id string) (*statement.Statement, error) {
	if s.R == nil {
		return nil, errors.New("store: redis client not configured")
	}
	payload, err := s.R.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	var st statement.Statement
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return &st, nil
}
