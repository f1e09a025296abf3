package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PGSink persists audit events into Postgres.
//
// Expected table:
//
//	CREATE TABLE audit_events (
//	    id uuid PRIMARY KEY,
//	    action text NOT NULL,
//	    entity_type text NOT NULL,
//	    entity_id text NOT NULL,
//	    actor text NOT NULL,
//	    before_state jsonb,
//	    after_state jsonb,
//	    metadata jsonb,
//	    ts timestamptz NOT NULL
//	);
type PGSink struct {
	db *sql.DB
}

func NewPGSink(db *sql.DB) *PGSink {
	return &PGSink{db: db}
}

func (p *PGSink) Append(ctx context.Context, ev *Event) error {
	before, err := marshalState(ev.Before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := marshalState(ev.After)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}
	metadata, err := marshalState(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		INSERT INTO audit_events (id, action, entity_type, entity_id, actor, before_state, after_state, metadata, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	_, err = p.db.ExecContext(ctx, q, ev.ID, ev.Action, ev.EntityType, ev.EntityID, ev.Actor, before, after, metadata, ev.TS)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func marshalState(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
