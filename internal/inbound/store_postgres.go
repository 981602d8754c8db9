package inbound

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

// PostgresStore persists inbound documents in inbound_documents and their
// scored candidates in match_attempts.
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

const documentColumns = `
	id, org_id, sender_identifier, content_hash, size_bytes, page_count,
	provider_metadata, document_type, classification_confidence,
	classification_method, matched_outbound_id, match_confidence,
	match_method, auto_attached, review_status, reviewer, reviewed_at,
	received_at`

func (s *PostgresStore) SaveDocument(ctx context.Context, doc InboundDocument) error {
	metadata, err := json.Marshal(doc.ProviderMetadata)
	if err != nil {
		return fmt.Errorf("marshal provider metadata: %w", err)
	}
	var matchedID any
	if !doc.MatchedOutboundID.IsNil() {
		matchedID = uuid.UUID(doc.MatchedOutboundID)
	}
	query := `
		INSERT INTO inbound_documents (` + documentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), uuid.UUID(doc.OrgID), doc.SenderIdentifier,
		doc.ContentHash, doc.SizeBytes, doc.PageCount, metadata,
		doc.DocumentType, doc.ClassificationConfidence,
		string(doc.ClassificationMethod), matchedID, doc.MatchConfidence,
		string(doc.MatchMethod), doc.AutoAttached, string(doc.ReviewStatus),
		doc.Reviewer, doc.ReviewedAt, doc.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inbound document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (InboundDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM inbound_documents WHERE org_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(documentID))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return InboundDocument{}, sentinel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, orgID id.OrgID, contentHash string) (InboundDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM inbound_documents
		WHERE org_id = $1 AND content_hash = $2
		ORDER BY received_at ASC
		LIMIT 1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(orgID), contentHash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return InboundDocument{}, sentinel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) UpdateClassification(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, docType string, confidence float64, method ClassificationMethod) error {
	query := `
		UPDATE inbound_documents
		SET document_type = $3, classification_confidence = $4,
		    classification_method = $5
		WHERE org_id = $1 AND id = $2`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(orgID), uuid.UUID(documentID), docType, confidence, string(method))
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) UpdateMatch(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, update MatchUpdate) error {
	var matchedID any
	if !update.OutboundID.IsNil() {
		matchedID = uuid.UUID(update.OutboundID)
	}
	query := `
		UPDATE inbound_documents
		SET matched_outbound_id = $3, match_confidence = $4,
		    match_method = $5, auto_attached = $6, review_status = $7,
		    reviewer = $8, reviewed_at = $9
		WHERE org_id = $1 AND id = $2`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(orgID), uuid.UUID(documentID), matchedID,
		update.Confidence, string(update.Method), update.AutoAttached,
		string(update.ReviewStatus), update.Reviewer, update.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return requireRow(result)
}

const attemptColumns = `
	id, org_id, document_id, outbound_id, correlation_id,
	reference_id_score, sender_score, name_score, dob_bonus,
	service_date_score, destination_name_score, total_score, selected,
	created_at`

func (s *PostgresStore) SaveAttempts(ctx context.Context, attempts []MatchAttempt) error {
	query := `
		INSERT INTO match_attempts (` + attemptColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	for _, a := range attempts {
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(a.ID), uuid.UUID(a.OrgID), uuid.UUID(a.DocumentID),
			uuid.UUID(a.OutboundID), uuid.UUID(a.CorrelationID),
			a.ReferenceIDScore, a.SenderScore, a.NameScore, a.DOBBonus,
			a.ServiceDateScore, a.DestinationNameScore, a.TotalScore,
			a.Selected, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert match attempt: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListAttemptsByDocument(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) ([]MatchAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM match_attempts
		WHERE org_id = $1 AND document_id = $2
		ORDER BY total_score DESC, created_at ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), uuid.UUID(documentID))
	if err != nil {
		return nil, fmt.Errorf("list match attempts: %w", err)
	}
	defer rows.Close()

	var attempts []MatchAttempt
	for rows.Next() {
		var (
			a                         MatchAttempt
			attemptID, orgUUID, docID uuid.UUID
			outboundID, correlationID uuid.UUID
		)
		err := rows.Scan(
			&attemptID, &orgUUID, &docID, &outboundID, &correlationID,
			&a.ReferenceIDScore, &a.SenderScore, &a.NameScore, &a.DOBBonus,
			&a.ServiceDateScore, &a.DestinationNameScore, &a.TotalScore,
			&a.Selected, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match attempt: %w", err)
		}
		a.ID = id.AttemptID(attemptID)
		a.OrgID = id.OrgID(orgUUID)
		a.DocumentID = id.DocumentID(docID)
		a.OutboundID = id.OutboundID(outboundID)
		a.CorrelationID = id.CorrelationID(correlationID)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *PostgresStore) ListPendingReview(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.listByReviewStatus(ctx, orgID, ReviewPending)
}

func (s *PostgresStore) ListManualQueue(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.listByReviewStatus(ctx, orgID, ReviewManualQueue)
}

func (s *PostgresStore) listByReviewStatus(ctx context.Context, orgID id.OrgID, status ReviewStatus) ([]InboundDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM inbound_documents
		WHERE org_id = $1 AND review_status = $2
		ORDER BY received_at ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(orgID), string(status))
	if err != nil {
		return nil, fmt.Errorf("list inbound documents: %w", err)
	}
	defer rows.Close()

	var docs []InboundDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (InboundDocument, error) {
	var (
		doc            InboundDocument
		docID, orgUUID uuid.UUID
		metadata       []byte
		matchedID      sql.Null[uuid.UUID]
		reviewer       sql.NullString
		reviewedAt     sql.NullTime
		classMethod    string
		matchMethod    string
		reviewStatus   string
	)
	err := row.Scan(
		&docID, &orgUUID, &doc.SenderIdentifier, &doc.ContentHash,
		&doc.SizeBytes, &doc.PageCount, &metadata, &doc.DocumentType,
		&doc.ClassificationConfidence, &classMethod, &matchedID,
		&doc.MatchConfidence, &matchMethod, &doc.AutoAttached,
		&reviewStatus, &reviewer, &reviewedAt, &doc.ReceivedAt,
	)
	if err != nil {
		return InboundDocument{}, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OrgID = id.OrgID(orgUUID)
	doc.ClassificationMethod = ClassificationMethod(classMethod)
	doc.MatchMethod = MatchMethod(matchMethod)
	doc.ReviewStatus = ReviewStatus(reviewStatus)
	if matchedID.Valid {
		doc.MatchedOutboundID = id.OutboundID(matchedID.V)
	}
	if reviewer.Valid {
		doc.Reviewer = reviewer.String
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		doc.ReviewedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.ProviderMetadata); err != nil {
			return InboundDocument{}, fmt.Errorf("unmarshal provider metadata: %w", err)
		}
	}
	return doc, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
