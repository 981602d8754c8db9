// Package ports defines the external collaborators the inbound matcher
// consumes. Text and field extraction is an external capability (OCR/NLP);
// nothing here assumes a particular extraction implementation.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/ports_mocks.go -package=mocks

import "context"

// Recognized structured field keys an extractor may return. Extractors are
// free to return additional keys; the matcher ignores what it does not know.
const (
	FieldReferenceID     = "reference_id"
	FieldPatientName     = "patient_name"
	FieldPatientDOB      = "patient_dob"  // YYYY-MM-DD
	FieldServiceDate     = "service_date" // YYYY-MM-DD
	FieldDestinationName = "destination_name"
)

// Extraction is the extractor's output: free text for classification plus
// whatever structured fields it could pull out.
type Extraction struct {
	Text   string
	Fields map[string]string
}

// Extractor pulls text and structured fields out of a document body. The
// inbound service tolerates a nil Extractor: classification degrades to
// "unknown" and matching relies on sender and reference signals only.
type Extractor interface {
	Extract(ctx context.Context, documentBytes []byte) (Extraction, error)
}
