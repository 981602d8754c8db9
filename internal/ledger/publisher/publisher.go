// Package publisher fans ledger entries out to Kafka for downstream
// compliance consumers (retention archives, SIEM pipelines). The ledger store
// is the source of truth; this stream is a derived feed.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"docrelay/internal/ledger"
)

// Publisher produces ledger entries to a Kafka topic, keyed by correlation id
// so one request's trail lands in partition order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects a Kafka producer for the given brokers and topic.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// payload mirrors ledger.Entry for consumers that do not import this module.
type payload struct {
	ID               string             `json:"id"`
	OrgID            string             `json:"org_id"`
	CorrelationID    string             `json:"correlation_id"`
	Action           string             `json:"action"`
	Actor            string             `json:"actor"`
	Outcome          string             `json:"outcome"`
	Detail           ledger.Detail      `json:"detail,omitempty"`
	References       []ledger.Reference `json:"references,omitempty"`
	PolicyDecisionID string             `json:"policy_decision_id,omitempty"`
	CreatedAt        string             `json:"created_at"`
	Hash             string             `json:"hash"`
}

// Publish synchronously produces one entry. Callers decide whether a failure
// is retried; Append never depends on this succeeding.
func (p *Publisher) Publish(ctx context.Context, entry ledger.Entry) error {
	body, err := json.Marshal(payload{
		ID:               entry.ID.String(),
		OrgID:            entry.OrgID.String(),
		CorrelationID:    entry.CorrelationID.String(),
		Action:           string(entry.Action),
		Actor:            entry.Actor,
		Outcome:          entry.Outcome,
		Detail:           entry.Detail,
		References:       entry.References,
		PolicyDecisionID: entry.PolicyDecisionID,
		CreatedAt:        entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		Hash:             entry.Hash,
	})
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.CorrelationID.String()),
		Value: body,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce ledger entry: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
