package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/gaps"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/internal/testutil"
)

type publishRecorder struct{ errs []error }

func (r *publishRecorder) EventPublished(err error) { r.errs = append(r.errs, err) }

type capturePublisher struct {
	msgs    []*Message
	batches int
	err     error
	batch   *BatchPublishResult
}

func (c *capturePublisher) Publish(_ context.Context, msg *Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func (c *capturePublisher) PublishBatch(_ context.Context, msgs []*Message) (*BatchPublishResult, error) {
	c.batches++
	c.msgs = append(c.msgs, msgs...)
	if c.err != nil {
		return nil, c.err
	}
	if c.batch != nil {
		return c.batch, nil
	}
	return &BatchPublishResult{Succeeded: len(msgs)}, nil
}

func decodeEnvelope(t *testing.T, value []byte) (EventEnvelope, RankingFinalizedPayload) {
	t.Helper()
	var env EventEnvelope
	require.NoError(t, json.Unmarshal(value, &env))
	var payload RankingFinalizedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	return env, payload
}

func sampleResult() ranking.Result {
	chosen := abag.Record{
		ComplexName:        "1AHW_B+A-C",
		Type:               abag.PairingUU,
		CandidateID:        "2",
		Antibody:           abag.Side{PDBID: "1FGN", ChainIDs: []string{"H", "L"}, Resolution: 2.5, Method: "X-RAY DIFFRACTION"},
		Antigen:            abag.Side{PDBID: "1TFH", ChainIDs: []string{"A"}, Resolution: 2.1, Method: "X-RAY DIFFRACTION"},
		AntibodyMismatches: 1,
		SmallMolecules:     abag.SeverityWarning,
		GapsBound:          gaps.Stats{Total: 3},
		GapsUnbound:        gaps.Stats{Total: 4},
	}
	return ranking.Result{ComplexName: "1AHW_B+A-C", Chosen: chosen, Alternatives: []abag.Record{{}, {}}}
}

func TestNewRankingFinalizedPayload(t *testing.T) {
	p := NewRankingFinalizedPayload("run1", sampleResult())
	assert.Equal(t, "1AHW_B+A-C_2", p.CandidateName)
	assert.Equal(t, "U:U", p.PairingType)
	assert.Equal(t, "1FGN", p.Antibody.PDBID)
	assert.Equal(t, 1, p.Antibody.Mismatches)
	assert.Equal(t, "warning", p.SmallMolecules)
	assert.Equal(t, 3, p.TotalGapsBound)
	assert.Equal(t, 4, p.TotalGapsFree)
	assert.Equal(t, 2, p.Alternatives)
	assert.False(t, p.IsPerfect)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEventEnvelope(EventRankingFinalized, NewRankingFinalizedPayload("r", sampleResult()))
	require.NoError(t, err)
	assert.Len(t, env.EventID, 36)

	msg, err := env.ToMessage("anbase.ranking", "1AHW_B+A-C")
	require.NoError(t, err)
	assert.Equal(t, env.EventID, msg.Headers["event_id"])

	back, payload := decodeEnvelope(t, msg.Value)
	assert.Equal(t, EventRankingFinalized, back.EventType)
	assert.Equal(t, env.EventID, back.EventID)
	assert.Equal(t, "1AHW_B+A-C", payload.ComplexName)
}

func TestRankingPublisher(t *testing.T) {
	pub := &capturePublisher{}
	rec := &publishRecorder{}
	p := NewRankingPublisher(pub, "anbase.ranking", "run7", rec, logging.NewNopLogger())

	require.NoError(t, p.Finalized(context.Background(), sampleResult()))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, []byte("1AHW_B+A-C"), pub.msgs[0].Key)
	assert.Zero(t, pub.batches)
	env, _ := decodeEnvelope(t, pub.msgs[0].Value)
	assert.Equal(t, "run7", env.Metadata["run_id"])
	assert.Equal(t, []error{nil}, rec.errs)

	require.NoError(t, p.Finalized(context.Background()))
	assert.Len(t, pub.msgs, 1)
}

func TestRankingPublisher_Batch(t *testing.T) {
	pub := &capturePublisher{}
	rec := &publishRecorder{}
	p := NewRankingPublisher(pub, "anbase.ranking", "run7", rec, logging.NewNopLogger())

	second := sampleResult()
	second.ComplexName = "2XYZ_H+L-A"
	require.NoError(t, p.Finalized(context.Background(), sampleResult(), second))
	assert.Equal(t, 1, pub.batches)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, []byte("2XYZ_H+L-A"), pub.msgs[1].Key)
	_, payload := decodeEnvelope(t, pub.msgs[1].Value)
	assert.Equal(t, "2XYZ_H+L-A", payload.ComplexName)
	assert.Equal(t, []error{nil, nil}, rec.errs)
}

func TestRankingPublisher_BatchPartialFailure(t *testing.T) {
	log := testutil.NewMockLogger()
	down := errors.New("down")
	pub := &capturePublisher{batch: &BatchPublishResult{
		Succeeded: 1, Failed: 1,
		Errors: []BatchItemError{{Index: 1, Topic: "t", Error: down}},
	}}
	rec := &publishRecorder{}
	p := NewRankingPublisher(pub, "t", "r", rec, log)

	err := p.Finalized(context.Background(), sampleResult(), sampleResult())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Equal(t, []error{nil, down}, rec.errs)
	assert.True(t, log.HasMessage("warn", "Failed to publish ranking event"))
}

func TestRankingPublisher_BatchWriteError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("closed")}
	rec := &publishRecorder{}
	p := NewRankingPublisher(pub, "t", "r", rec, logging.NewNopLogger())

	assert.Error(t, p.Finalized(context.Background(), sampleResult(), sampleResult()))
	require.Len(t, rec.errs, 2)
	assert.Error(t, rec.errs[0])
	assert.Error(t, rec.errs[1])
}

func TestRankingPublisher_Failure(t *testing.T) {
	log := testutil.NewMockLogger()
	pub := &capturePublisher{err: errors.New("down")}
	rec := &publishRecorder{}
	p := NewRankingPublisher(pub, "t", "r", rec, log)

	assert.Error(t, p.Finalized(context.Background(), sampleResult()))
	assert.True(t, log.HasMessage("warn", "Failed to publish ranking event"))
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

type mockConn struct {
	partitions map[string][]kafka.Partition
	created    []kafka.TopicConfig
	createErr  error
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	return m.createErr
}

func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if p, ok := m.partitions[topics[0]]; ok {
		return p, nil
	}
	return nil, kafka.UnknownTopicOrPartition
}

func (m *mockConn) Close() error { return nil }

func TestTopicManager_EnsureTopic(t *testing.T) {
	conn := &mockConn{partitions: map[string][]kafka.Partition{"existing": {{Topic: "existing"}}}}
	m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}
	ctx := context.Background()

	require.NoError(t, m.EnsureTopic(ctx, "existing", 3))
	assert.Empty(t, conn.created)

	require.NoError(t, m.EnsureTopic(ctx, "fresh", 0))
	require.Len(t, conn.created, 1)
	assert.Equal(t, 1, conn.created[0].NumPartitions)

	conn.createErr = kafka.TopicAlreadyExists
	assert.NoError(t, m.EnsureTopic(ctx, "raced", 1))

	conn.createErr = errors.New("denied")
	assert.Error(t, m.EnsureTopic(ctx, "other", 1))
	assert.Error(t, m.EnsureTopic(ctx, "", 1))
}

//Personal.AI order the ending
