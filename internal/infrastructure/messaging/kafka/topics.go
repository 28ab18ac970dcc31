package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Event types
const (
	EventRankingFinalized = "ranking.finalized"

	eventSource   = "anbase"
	schemaVersion = "v1"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SidePayload describes one unbound group of the chosen candidate.
type SidePayload struct {
	PDBID      string   `json:"pdb_id"`
	ChainIDs   []string `json:"chain_ids"`
	Resolution float64  `json:"resolution"`
	Method     string   `json:"method"`
	Mismatches int      `json:"mismatches"`
}

// RankingFinalizedPayload is emitted once per finalized complex.
type RankingFinalizedPayload struct {
	RunID          string      `json:"run_id"`
	ComplexName    string      `json:"complex_name"`
	CandidateName  string      `json:"candidate_name"`
	PairingType    string      `json:"pairing_type"`
	IsPerfect      bool        `json:"is_perfect"`
	Antibody       SidePayload `json:"antibody"`
	Antigen        SidePayload `json:"antigen"`
	SmallMolecules string      `json:"small_molecules"`
	TotalGapsBound int         `json:"total_gaps_bound"`
	TotalGapsFree  int         `json:"total_gaps_unbound"`
	Alternatives   int         `json:"alternatives"`
}

// NewRankingFinalizedPayload flattens a ranking result.
func NewRankingFinalizedPayload(runID string, res ranking.Result) RankingFinalizedPayload {
	c := res.Chosen
	side := func(s abag.Side, mismatches int) SidePayload {
		return SidePayload{PDBID: s.PDBID, ChainIDs: s.ChainIDs, Resolution: s.Resolution, Method: s.Method, Mismatches: mismatches}
	}
	return RankingFinalizedPayload{
		RunID:          runID,
		ComplexName:    res.ComplexName,
		CandidateName:  c.Name(),
		PairingType:    string(c.Type),
		IsPerfect:      res.IsPerfect,
		Antibody:       side(c.Antibody, c.AntibodyMismatches),
		Antigen:        side(c.Antigen, c.AntigenMismatches),
		SmallMolecules: c.SmallMolecules.Message(),
		TotalGapsBound: c.GapsBound.Total,
		TotalGapsFree:  c.GapsUnbound.Total,
		Alternatives:   len(res.Alternatives),
	}
}

// NewEventEnvelope wraps payload under a fresh event id.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// ToMessage serializes the envelope keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_id":       e.EventID,
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Publisher
// ─────────────────────────────────────────────────────────────────────────────

// MessagePublisher is satisfied by *Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *Message) error
	PublishBatch(ctx context.Context, msgs []*Message) (*BatchPublishResult, error)
}

// Recorder receives one call per published event.
type Recorder interface {
	EventPublished(err error)
}

// RankingPublisher emits ranking.finalized events.
type RankingPublisher struct {
	producer MessagePublisher
	topic    string
	runID    string
	recorder Recorder
	logger   logging.Logger
}

// NewRankingPublisher builds a publisher on producer. recorder may be nil.
func NewRankingPublisher(producer MessagePublisher, topic, runID string, recorder Recorder, logger logging.Logger) *RankingPublisher {
	return &RankingPublisher{producer: producer, topic: topic, runID: runID, recorder: recorder, logger: logger}
}

// Finalized publishes one event per result, keyed by complex name so that all
// events of one complex land on the same partition. Several results go out in
// a single batch write; the error reports how many of them failed.
func (p *RankingPublisher) Finalized(ctx context.Context, results ...ranking.Result) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]*Message, 0, len(results))
	for _, res := range results {
		msg, err := p.message(res)
		if err != nil {
			p.record(err)
			return err
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) == 1 {
		err := p.producer.Publish(ctx, msgs[0])
		p.record(err)
		if err != nil {
			p.logger.Warn("Failed to publish ranking event",
				logging.ComplexName(results[0].ComplexName), logging.Err(err))
		}
		return err
	}

	batch, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		for range msgs {
			p.record(err)
		}
		p.logger.Warn("Failed to publish ranking events", logging.Int("events", len(msgs)), logging.Err(err))
		return err
	}
	failed := make(map[int]error, len(batch.Errors))
	for _, e := range batch.Errors {
		if e.Index < 0 {
			for i := range msgs {
				failed[i] = e.Error
			}
			continue
		}
		failed[e.Index] = e.Error
	}
	for i := range msgs {
		p.record(failed[i])
		if err := failed[i]; err != nil {
			p.logger.Warn("Failed to publish ranking event",
				logging.ComplexName(results[i].ComplexName), logging.Err(err))
		}
	}
	if batch.Failed > 0 {
		return errors.Newf(errors.ErrCodeEvent, "%d of %d ranking events not published", batch.Failed, len(msgs))
	}
	return nil
}

func (p *RankingPublisher) message(res ranking.Result) (*Message, error) {
	env, err := NewEventEnvelope(EventRankingFinalized, NewRankingFinalizedPayload(p.runID, res))
	if err != nil {
		return nil, err
	}
	env.Metadata = map[string]string{"run_id": p.runID}
	return env.ToMessage(p.topic, res.ComplexName)
}

func (p *RankingPublisher) record(err error) {
	if p.recorder != nil {
		p.recorder.EventPublished(err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic management
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the event topic when it is missing.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// TopicExists reports whether name has at least one partition.
func (m *TopicManager) TopicExists(name string) bool {
	partitions, err := m.conn.ReadPartitions(name)
	return err == nil && len(partitions) > 0
}

// EnsureTopic creates name with the given partition count unless it exists.
func (m *TopicManager) EnsureTopic(ctx context.Context, name string, partitions int) error {
	if name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if partitions <= 0 {
		partitions = 1
	}
	if m.TopicExists(name) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.conn.CreateTopics(kafka.TopicConfig{Topic: name, NumPartitions: partitions, ReplicationFactor: 1})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return errors.Wrap(err, errors.ErrCodeEvent, "failed to create topic")
	}
	m.logger.Info("Topic ensured", logging.String("topic", name), logging.Int("partitions", partitions))
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

//Personal.AI order the ending
