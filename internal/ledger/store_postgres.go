package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "docrelay/pkg/domain"
	txcontext "docrelay/pkg/platform/tx"
)

// PostgresStore persists ledger entries to the ledger_entries table. The
// table carries no UPDATE or DELETE grants; append is the only write path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal entry detail: %w", err)
	}
	refs, err := json.Marshal(entry.References)
	if err != nil {
		return fmt.Errorf("marshal entry references: %w", err)
	}

	var corrects any
	if !entry.Corrects.IsNil() {
		corrects = uuid.UUID(entry.Corrects)
	}

	query := `
		INSERT INTO ledger_entries
			(id, org_id, correlation_id, action, actor, outcome, detail, refs,
			 policy_decision_id, corrects, created_at, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.OrgID),
		uuid.UUID(entry.CorrelationID),
		string(entry.Action),
		entry.Actor,
		entry.Outcome,
		detail,
		refs,
		entry.PolicyDecisionID,
		corrects,
		entry.CreatedAt,
		entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]Entry, error) {
	query := `
		SELECT id, org_id, correlation_id, action, actor, outcome, detail, refs,
		       policy_decision_id, corrects, created_at, hash
		FROM ledger_entries
		WHERE org_id = $1 AND correlation_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), uuid.UUID(correlationID))
	if err != nil {
		return nil, fmt.Errorf("query ledger by correlation: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByReference(ctx context.Context, orgID id.OrgID, kind ReferenceKind, value string) ([]Entry, error) {
	query := `
		SELECT id, org_id, correlation_id, action, actor, outcome, detail, refs,
		       policy_decision_id, corrects, created_at, hash
		FROM ledger_entries
		WHERE org_id = $1 AND refs @> $2::jsonb
		ORDER BY created_at ASC
	`
	match, err := json.Marshal([]Reference{{Kind: kind, Value: value}})
	if err != nil {
		return nil, fmt.Errorf("marshal reference filter: %w", err)
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), match)
	if err != nil {
		return nil, fmt.Errorf("query ledger by reference: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			entryID   uuid.UUID
			orgID     uuid.UUID
			corrID    uuid.UUID
			action    string
			detail    []byte
			refs      []byte
			corrects  sql.Null[uuid.UUID]
		)
		if err := rows.Scan(&entryID, &orgID, &corrID, &action, &e.Actor, &e.Outcome,
			&detail, &refs, &e.PolicyDecisionID, &corrects, &e.CreatedAt, &e.Hash); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ID = id.EntryID(entryID)
		e.OrgID = id.OrgID(orgID)
		e.CorrelationID = id.CorrelationID(corrID)
		e.Action = ActionType(action)
		if corrects.Valid {
			e.Corrects = id.EntryID(corrects.V)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal entry detail: %w", err)
			}
		}
		if len(refs) > 0 {
			if err := json.Unmarshal(refs, &e.References); err != nil {
				return nil, fmt.Errorf("unmarshal entry references: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
