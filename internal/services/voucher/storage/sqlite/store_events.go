package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gonzalobarria/mesa-compartida/internal/platform/id"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/event"
	"github.com/gonzalobarria/mesa-compartida/internal/services/voucher/storage"
)

// AppendEvent writes the next journal entry, chaining it to the previous one.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	return s.AppendEventWithTransfers(ctx, evt, nil)
}

// AppendEventWithTransfers applies transfers and appends evt in one SQL
// transaction: either every balance moves and the event is journaled, or
// nothing changes. Non-positive amounts are skipped.
func (s *Store) AppendEventWithTransfers(ctx context.Context, evt event.Event, transfers []storage.Transfer) (event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return event.Event{}, err
	}
	evt, err := s.prepareEvent(evt)
	if err != nil {
		return event.Event{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	for _, t := range transfers {
		if !t.Amount.IsPositive() {
			continue
		}
		if err := s.transferTx(ctx, tx, t); err != nil {
			return event.Event{}, err
		}
	}
	evt, err = appendTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit append: %w", err)
	}
	return evt, nil
}

func (s *Store) prepareEvent(evt event.Event) (event.Event, error) {
	if !evt.Type.IsValid() {
		return event.Event{}, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(evt.ID) == "" {
		eventID, err := id.NewID()
		if err != nil {
			return event.Event{}, fmt.Errorf("generate event id: %w", err)
		}
		evt.ID = eventID
	} else if err := id.Validate(evt.ID); err != nil {
		return event.Event{}, fmt.Errorf("event id: %w", err)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.now()
	}
	evt.Timestamp = fromMillis(toMillis(evt.Timestamp))
	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	return evt, nil
}

func appendTx(ctx context.Context, tx *sql.Tx, evt event.Event) (event.Event, error) {
	var lastSeq uint64
	var prevChain string
	err := tx.QueryRowContext(ctx,
		`SELECT seq, chain_hash FROM events ORDER BY seq DESC LIMIT 1`,
	).Scan(&lastSeq, &prevChain)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("read journal head: %w", err)
	}

	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt.Seq = lastSeq + 1
	evt.Hash = hash
	evt.PrevHash = prevChain
	evt.ChainHash = event.ChainHash(hash, prevChain)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (
		   seq, event_id, event_hash, prev_hash, chain_hash, timestamp,
		   event_type, actor_id, entity_type, entity_id, payload_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.Seq,
		evt.ID,
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		evt.PayloadJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return event.Event{}, fmt.Errorf("append event seq %d: duplicate sequence or id", evt.Seq)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	return evt, nil
}

// ListEvents returns up to limit events after afterSeq in sequence order.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, event_id, event_hash, prev_hash, chain_hash, timestamp,
		        event_type, actor_id, entity_type, entity_id, payload_json
		   FROM events
		  WHERE seq > ?
		  ORDER BY seq ASC
		  LIMIT ?`,
		afterSeq,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		var evt event.Event
		var eventType string
		var timestamp int64
		if err := rows.Scan(
			&evt.Seq,
			&evt.ID,
			&evt.Hash,
			&evt.PrevHash,
			&evt.ChainHash,
			&timestamp,
			&eventType,
			&evt.ActorID,
			&evt.EntityType,
			&evt.EntityID,
			&evt.PayloadJSON,
		); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		evt.Type = event.Type(eventType)
		evt.Timestamp = fromMillis(timestamp)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// LatestSeq returns the sequence of the newest event, zero when empty.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var seq sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// GetEvent returns the event at seq.
func (s *Store) GetEvent(ctx context.Context, seq uint64) (event.Event, error) {
	if seq == 0 {
		return event.Event{}, storage.ErrNotFound
	}
	events, err := s.ListEvents(ctx, seq-1, 1)
	if err != nil {
		return event.Event{}, err
	}
	if len(events) == 0 || events[0].Seq != seq {
		return event.Event{}, storage.ErrNotFound
	}
	return events[0], nil
}

// VerifyChain recomputes every event hash and chain link in order.
func (s *Store) VerifyChain(ctx context.Context) error {
	const pageSize = 200
	var (
		afterSeq  uint64
		prevChain string
	)
	for {
		events, err := s.ListEvents(ctx, afterSeq, pageSize)
		if err != nil {
			return err
		}
		for _, evt := range events {
			if evt.Seq != afterSeq+1 {
				return fmt.Errorf("%w: sequence gap at %d", storage.ErrChainBroken, afterSeq+1)
			}
			hash, err := event.EventHash(evt)
			if err != nil {
				return err
			}
			if hash != evt.Hash {
				return fmt.Errorf("%w: hash mismatch at seq %d", storage.ErrChainBroken, evt.Seq)
			}
			if evt.PrevHash != prevChain || event.ChainHash(hash, prevChain) != evt.ChainHash {
				return fmt.Errorf("%w: chain mismatch at seq %d", storage.ErrChainBroken, evt.Seq)
			}
			afterSeq = evt.Seq
			prevChain = evt.ChainHash
		}
		if len(events) < pageSize {
			return nil
		}
	}
}
