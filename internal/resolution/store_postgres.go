package resolution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
	txcontext "docrelay/pkg/platform/tx"
)

// PostgresStore persists contacts and histories. Contacts are superseded, not
// updated in place; the only UPDATE paths are supersession, delivery
// counters, and the history review annotation.
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

const contactColumns = `
	id, org_id, name, address, city, state, zip, npi, facility_id,
	state_license_id, fax_number, department, layer, verified,
	success_count, failure_count, last_success_at, active, replaced_by,
	created_at, updated_at`

func (s *PostgresStore) SaveContact(ctx context.Context, c DestinationContact) error {
	query := `
		INSERT INTO destination_contacts (` + contactColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`
	var replacedBy any
	if !c.ReplacedByID.IsNil() {
		replacedBy = uuid.UUID(c.ReplacedByID)
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.OrgID), c.Name, c.Address, c.City, c.State, c.Zip,
		c.NPI, c.FacilityID, c.StateLicenseID, c.FaxNumber, c.Department,
		int(c.Layer), c.Verified, c.SuccessCount, c.FailureCount, c.LastSuccessAt,
		c.Active, replacedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert destination contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindContact(ctx context.Context, orgID id.OrgID, contactID id.ContactID) (DestinationContact, error) {
	query := `SELECT ` + contactColumns + ` FROM destination_contacts WHERE org_id = $1 AND id = $2`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), uuid.UUID(contactID))
	if err != nil {
		return DestinationContact{}, fmt.Errorf("find contact: %w", err)
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil {
		return DestinationContact{}, err
	}
	if len(contacts) == 0 {
		return DestinationContact{}, sentinel.ErrNotFound
	}
	return contacts[0], nil
}

func (s *PostgresStore) Supersede(ctx context.Context, orgID id.OrgID, oldID, newID id.ContactID) error {
	query := `
		UPDATE destination_contacts
		SET active = FALSE, replaced_by = $3, updated_at = NOW()
		WHERE org_id = $1 AND id = $2 AND active
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(orgID), uuid.UUID(oldID), uuid.UUID(newID))
	if err != nil {
		return fmt.Errorf("supersede contact: %w", err)
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

func (s *PostgresStore) ListActiveByName(ctx context.Context, orgID id.OrgID, name string, layer AuthorityLayer) ([]DestinationContact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM destination_contacts
		WHERE org_id = $1 AND layer = $2 AND active AND LOWER(name) = LOWER($3)
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), int(layer), name)
	if err != nil {
		return nil, fmt.Errorf("list contacts by name: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (s *PostgresStore) ListActiveByIdentifier(ctx context.Context, orgID id.OrgID, identifier string, layer AuthorityLayer) ([]DestinationContact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM destination_contacts
		WHERE org_id = $1 AND layer = $2 AND active
		  AND (npi = $3 OR facility_id = $3 OR state_license_id = $3)
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), int(layer), identifier)
	if err != nil {
		return nil, fmt.Errorf("list contacts by identifier: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (s *PostgresStore) ListActiveByAnyIdentifier(ctx context.Context, orgID id.OrgID, identifier string) ([]DestinationContact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM destination_contacts
		WHERE org_id = $1 AND active
		  AND (npi = $2 OR facility_id = $2 OR state_license_id = $2)
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), identifier)
	if err != nil {
		return nil, fmt.Errorf("list contacts by identifier: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (s *PostgresStore) ListActiveByLayer(ctx context.Context, orgID id.OrgID, layer AuthorityLayer) ([]DestinationContact, error) {
	query := `SELECT ` + contactColumns + ` FROM destination_contacts WHERE org_id = $1 AND layer = $2 AND active`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), int(layer))
	if err != nil {
		return nil, fmt.Errorf("list contacts by layer: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (s *PostgresStore) FindMostRecentSuccess(ctx context.Context, orgID id.OrgID, name string, layer AuthorityLayer) (DestinationContact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM destination_contacts
		WHERE org_id = $1 AND layer = $2 AND active
		  AND LOWER(name) = LOWER($3) AND last_success_at IS NOT NULL
		ORDER BY last_success_at DESC
		LIMIT 1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), int(layer), name)
	if err != nil {
		return DestinationContact{}, fmt.Errorf("find most recent success: %w", err)
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil {
		return DestinationContact{}, err
	}
	if len(contacts) == 0 {
		return DestinationContact{}, sentinel.ErrNotFound
	}
	return contacts[0], nil
}

func (s *PostgresStore) RecordDeliveryOutcome(ctx context.Context, orgID id.OrgID, contactID id.ContactID, success bool, at time.Time) error {
	var query string
	if success {
		query = `
			UPDATE destination_contacts
			SET success_count = success_count + 1, last_success_at = $3, updated_at = $3
			WHERE org_id = $1 AND id = $2
		`
	} else {
		query = `
			UPDATE destination_contacts
			SET failure_count = failure_count + 1, updated_at = $3
			WHERE org_id = $1 AND id = $2
		`
	}
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(orgID), uuid.UUID(contactID), at)
	if err != nil {
		return fmt.Errorf("record delivery outcome: %w", err)
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

func (s *PostgresStore) SaveHistory(ctx context.Context, h History) error {
	trail, err := json.Marshal(h.Trail)
	if err != nil {
		return fmt.Errorf("marshal resolution trail: %w", err)
	}
	conflicts, err := json.Marshal(h.Conflicts)
	if err != nil {
		return fmt.Errorf("marshal resolution conflicts: %w", err)
	}
	var contactID any
	if !h.ContactID.IsNil() {
		contactID = uuid.UUID(h.ContactID)
	}
	query := `
		INSERT INTO resolution_histories
			(id, org_id, correlation_id, destination_name, document_type,
			 workflow_context, resolved, value, source_layer, confidence,
			 department, requires_review, conflicts, trail, contact_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(h.ID), uuid.UUID(h.OrgID), uuid.UUID(h.CorrelationID),
		h.DestinationName, h.DocumentType, h.WorkflowContext, h.Resolved, h.Value,
		int(h.SourceLayer), h.Confidence, h.Department, h.RequiresHumanReview,
		conflicts, trail, contactID, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution history: %w", err)
	}
	return nil
}

const historyColumns = `
	id, org_id, correlation_id, destination_name, document_type,
	workflow_context, resolved, value, source_layer, confidence, department,
	requires_review, conflicts, trail, contact_id, reviewed, reviewer,
	confirmed_value, confirmed_department, promoted_contact_id, created_at`

func (s *PostgresStore) FindHistory(ctx context.Context, orgID id.OrgID, historyID id.HistoryID) (History, error) {
	query := `SELECT ` + historyColumns + ` FROM resolution_histories WHERE org_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(historyID))
	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return History{}, sentinel.ErrNotFound
	}
	return h, err
}

func (s *PostgresStore) ListHistoriesRequiringReview(ctx context.Context, orgID id.OrgID) ([]History, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM resolution_histories
		WHERE org_id = $1 AND requires_review AND NOT reviewed
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list histories requiring review: %w", err)
	}
	defer rows.Close()

	var out []History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AnnotateReview(ctx context.Context, orgID id.OrgID, historyID id.HistoryID, annotation ReviewAnnotation) error {
	var promoted any
	if !annotation.PromotedContactID.IsNil() {
		promoted = uuid.UUID(annotation.PromotedContactID)
	}
	query := `
		UPDATE resolution_histories
		SET reviewed = TRUE, reviewer = $3, confirmed_value = $4,
		    confirmed_department = $5, promoted_contact_id = $6
		WHERE org_id = $1 AND id = $2 AND NOT reviewed
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(orgID), uuid.UUID(historyID),
		annotation.Reviewer, annotation.ConfirmedValue,
		annotation.ConfirmedDepartment, promoted,
	)
	if err != nil {
		return fmt.Errorf("annotate resolution review: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContacts(rows *sql.Rows) ([]DestinationContact, error) {
	var out []DestinationContact
	for rows.Next() {
		var (
			c          DestinationContact
			cid, oid   uuid.UUID
			layer      int
			lastOK     sql.NullTime
			replacedBy sql.Null[uuid.UUID]
		)
		if err := rows.Scan(&cid, &oid, &c.Name, &c.Address, &c.City, &c.State, &c.Zip,
			&c.NPI, &c.FacilityID, &c.StateLicenseID, &c.FaxNumber, &c.Department,
			&layer, &c.Verified, &c.SuccessCount, &c.FailureCount, &lastOK,
			&c.Active, &replacedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan destination contact: %w", err)
		}
		c.ID = id.ContactID(cid)
		c.OrgID = id.OrgID(oid)
		c.Layer = AuthorityLayer(layer)
		if lastOK.Valid {
			t := lastOK.Time
			c.LastSuccessAt = &t
		}
		if replacedBy.Valid {
			c.ReplacedByID = id.ContactID(replacedBy.V)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanHistory(row rowScanner) (History, error) {
	var (
		h          History
		hid, oid   uuid.UUID
		corrID     uuid.UUID
		layer      int
		conflicts  []byte
		trail      []byte
		contactID  sql.Null[uuid.UUID]
		promotedID sql.Null[uuid.UUID]
	)
	err := row.Scan(&hid, &oid, &corrID, &h.DestinationName, &h.DocumentType,
		&h.WorkflowContext, &h.Resolved, &h.Value, &layer, &h.Confidence,
		&h.Department, &h.RequiresHumanReview, &conflicts, &trail, &contactID,
		&h.Reviewed, &h.Reviewer, &h.ConfirmedValue, &h.ConfirmedDepartment,
		&promotedID, &h.CreatedAt)
	if err != nil {
		return History{}, err
	}
	h.ID = id.HistoryID(hid)
	h.OrgID = id.OrgID(oid)
	h.CorrelationID = id.CorrelationID(corrID)
	h.SourceLayer = AuthorityLayer(layer)
	if contactID.Valid {
		h.ContactID = id.ContactID(contactID.V)
	}
	if promotedID.Valid {
		h.PromotedContactID = id.ContactID(promotedID.V)
	}
	if len(conflicts) > 0 {
		if err := json.Unmarshal(conflicts, &h.Conflicts); err != nil {
			return History{}, fmt.Errorf("unmarshal resolution conflicts: %w", err)
		}
	}
	if len(trail) > 0 {
		if err := json.Unmarshal(trail, &h.Trail); err != nil {
			return History{}, fmt.Errorf("unmarshal resolution trail: %w", err)
		}
	}
	return h, nil
}
