package outbound

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
	txcontext "docrelay/pkg/platform/tx"
)

// PostgresStore persists delivery records in outbound_requests with their
// transition stream in outbound_status_events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const requestColumns = `
	id, org_id, correlation_id, direction, status, destination_value,
	destination_name, contact_id, retry_count, max_retries, retries_halted,
	metadata, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, r Request) error {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal outbound metadata: %w", err)
	}
	var contactID any
	if !r.ContactID.IsNil() {
		contactID = uuid.UUID(r.ContactID)
	}
	query := `
		INSERT INTO outbound_requests (` + requestColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.OrgID), uuid.UUID(r.CorrelationID),
		string(r.Direction), string(r.Status), r.DestinationValue,
		r.DestinationName, contactID, r.RetryCount, r.MaxRetries,
		r.RetriesHalted, metadata, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbound request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM outbound_requests WHERE org_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(outboundID))
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, sentinel.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) FindByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM outbound_requests WHERE org_id = $1 AND correlation_id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(correlationID))
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, sentinel.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) Transition(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID, event StatusEvent) error {
	insert := `
		INSERT INTO outbound_status_events (outbound_id, from_status, to_status, reason, at)
		SELECT id, $3, $4, $5, $6 FROM outbound_requests
		WHERE org_id = $1 AND id = $2 AND status = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, insert,
		uuid.UUID(orgID), uuid.UUID(outboundID),
		string(event.From), string(event.To), event.Reason, event.At,
	)
	if err != nil {
		return fmt.Errorf("append status event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}

	update := `
		UPDATE outbound_requests SET status = $3, updated_at = $4
		WHERE org_id = $1 AND id = $2
	`
	if _, err := s.execer(ctx).ExecContext(ctx, update,
		uuid.UUID(orgID), uuid.UUID(outboundID), string(event.To), event.At); err != nil {
		return fmt.Errorf("advance cached status: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementRetry(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) (int, error) {
	query := `
		UPDATE outbound_requests SET retry_count = retry_count + 1
		WHERE org_id = $1 AND id = $2
		RETURNING retry_count
	`
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(outboundID)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment retry: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) HaltRetries(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) error {
	query := `UPDATE outbound_requests SET retries_halted = TRUE WHERE org_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(orgID), uuid.UUID(outboundID))
	if err != nil {
		return fmt.Errorf("halt retries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOutstandingByDestination(ctx context.Context, orgID id.OrgID, destinationValue string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM outbound_requests
		WHERE org_id = $1 AND destination_value = $2
		  AND status IN ('queued', 'sending', 'delivered')
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, query, uuid.UUID(orgID), destinationValue)
}

func (s *PostgresStore) ListOutstanding(ctx context.Context, orgID id.OrgID) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM outbound_requests
		WHERE org_id = $1 AND status IN ('queued', 'sending', 'delivered')
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, query, uuid.UUID(orgID))
}

func (s *PostgresStore) listRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbound requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListStatusEvents(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) ([]StatusEvent, error) {
	query := `
		SELECT e.outbound_id, e.from_status, e.to_status, e.reason, e.at
		FROM outbound_status_events e
		JOIN outbound_requests r ON r.id = e.outbound_id
		WHERE r.org_id = $1 AND e.outbound_id = $2
		ORDER BY e.at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), uuid.UUID(outboundID))
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	var out []StatusEvent
	for rows.Next() {
		var (
			e   StatusEvent
			oid uuid.UUID
		)
		var from, to string
		if err := rows.Scan(&oid, &from, &to, &e.Reason, &e.At); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}
		e.OutboundID = id.OutboundID(oid)
		e.From = Status(from)
		e.To = Status(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var (
		r         Request
		rid, oid  uuid.UUID
		corrID    uuid.UUID
		direction string
		status    string
		contactID sql.Null[uuid.UUID]
		metadata  []byte
	)
	err := row.Scan(&rid, &oid, &corrID, &direction, &status, &r.DestinationValue,
		&r.DestinationName, &contactID, &r.RetryCount, &r.MaxRetries,
		&r.RetriesHalted, &metadata, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	r.ID = id.OutboundID(rid)
	r.OrgID = id.OrgID(oid)
	r.CorrelationID = id.CorrelationID(corrID)
	r.Direction = Direction(direction)
	r.Status = Status(status)
	if contactID.Valid {
		r.ContactID = id.ContactID(contactID.V)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return Request{}, fmt.Errorf("unmarshal outbound metadata: %w", err)
		}
	}
	return r, nil
}
