package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notification-worker/internal/dispatcher"
	"notification-worker/internal/model"
	"notification-worker/internal/rabbitmq"
)

// fakeProvider satisfies dispatcher.Provider so consumer tests exercise the
// real validation and template path.
type fakeProvider struct {
	err  error
	sent []dispatcher.Email
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Send(_ context.Context, msg dispatcher.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// panickyDispatcher simulates an unexpected runtime fault mid-processing.
type panickyDispatcher struct{}

func (panickyDispatcher) Dispatch(context.Context, *model.NotificationEvent) error {
	panic("boom")
}

type fakeAudit struct {
	err     error
	records []model.NotificationEvent
}

func (f *fakeAudit) Append(_ context.Context, ev *model.NotificationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *ev)
	return nil
}

// fakeAcknowledger records the acknowledgment calls the broker would see.
type fakeAcknowledger struct {
	acks    int
	nacks   []bool // requeue flag per nack
	rejects []bool // requeue flag per reject
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error { f.acks++; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks = append(f.nacks, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.rejects = append(f.rejects, requeue)
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestConsumer(d Dispatcher, audit *fakeAudit) *Consumer {
	c := &Consumer{
		dispatch: d,
		log:      zap.NewNop(),
		now:      func() time.Time { return fixedNow },
	}
	if audit != nil {
		c.audit = audit
	}
	return c
}

func delivery(ack *fakeAcknowledger, body string) rabbitmq.Delivery {
	return rabbitmq.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestHandleDeliveredEvent(t *testing.T) {
	provider := &fakeProvider{}
	audit := &fakeAudit{}
	c := newTestConsumer(dispatcher.New(provider), audit)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A1","type":"UserRegistration","data":{"UserEmail":"a@x.com","UserName":"Ana"}}`))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.nacks)
	assert.Empty(t, ack.rejects)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "a@x.com", provider.sent[0].To)

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	assert.Equal(t, "A1", rec.ID)
	assert.True(t, rec.Sent)
	assert.Empty(t, rec.ErrorMessage)
	assert.Equal(t, fixedNow, rec.Timestamp)
}

func TestHandleMissingRequiredDataKey(t *testing.T) {
	provider := &fakeProvider{}
	audit := &fakeAudit{}
	c := newTestConsumer(dispatcher.New(provider), audit)
	ack := &fakeAcknowledger{}

	// OrderCreated without OrderId: permanent failure, no delivery attempt.
	c.handle(context.Background(), delivery(ack,
		`{"id":"A2","type":"OrderCreated","data":{"UserEmail":"b@x.com"}}`))

	require.Len(t, ack.nacks, 1)
	assert.False(t, ack.nacks[0], "permanent failures must not requeue")
	assert.Zero(t, ack.acks)
	assert.Empty(t, provider.sent)

	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].Sent)
	assert.NotEmpty(t, audit.records[0].ErrorMessage)
}

func TestHandleUnsupportedType(t *testing.T) {
	provider := &fakeProvider{}
	audit := &fakeAudit{}
	c := newTestConsumer(dispatcher.New(provider), audit)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A3","type":"PasswordReset","data":{"UserEmail":"c@x.com"}}`))

	require.Len(t, ack.nacks, 1)
	assert.False(t, ack.nacks[0])
	assert.Empty(t, provider.sent)
	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].Sent)
}

func TestHandleMalformedPayload(t *testing.T) {
	provider := &fakeProvider{}
	audit := &fakeAudit{}
	c := newTestConsumer(dispatcher.New(provider), audit)

	// Redelivery of the identical poison payload behaves the same each
	// time: reject without requeue, no delivery attempt, no audit record.
	for i := 0; i < 2; i++ {
		ack := &fakeAcknowledger{}
		c.handle(context.Background(), delivery(ack, `{"id":"A4","ty`))

		require.Len(t, ack.rejects, 1)
		assert.False(t, ack.rejects[0], "poison messages must not requeue")
		assert.Zero(t, ack.acks)
		assert.Empty(t, ack.nacks)
	}

	assert.Empty(t, provider.sent)
	assert.Empty(t, audit.records)
}

func TestHandleTransientProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("smtp: connection refused")}
	audit := &fakeAudit{}
	c := newTestConsumer(dispatcher.New(provider), audit)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A5","type":"UserRegistration","data":{"UserEmail":"d@x.com"}}`))

	require.Len(t, ack.nacks, 1)
	assert.True(t, ack.nacks[0], "transient failures requeue")

	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].Sent)
	assert.Contains(t, audit.records[0].ErrorMessage, "connection refused")
}

func TestHandleUnexpectedFault(t *testing.T) {
	audit := &fakeAudit{}
	c := newTestConsumer(panickyDispatcher{}, audit)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A6","type":"UserRegistration","data":{"UserEmail":"e@x.com"}}`))

	require.Len(t, ack.nacks, 1)
	assert.True(t, ack.nacks[0], "unexpected faults requeue")

	// The outcome record is still appended, with the fault recorded.
	require.Len(t, audit.records, 1)
	assert.False(t, audit.records[0].Sent)
	assert.Contains(t, audit.records[0].ErrorMessage, "boom")
}

func TestHandleAuditFailureDoesNotChangeAck(t *testing.T) {
	provider := &fakeProvider{}
	audit := &fakeAudit{err: errors.New("mongo: server selection timeout")}
	c := newTestConsumer(dispatcher.New(provider), audit)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A7","type":"UserRegistration","data":{"UserEmail":"f@x.com"}}`))

	assert.Equal(t, 1, ack.acks, "persistence failure must not alter acknowledgment")
	assert.Empty(t, audit.records)
}

func TestHandleWithoutAuditStore(t *testing.T) {
	provider := &fakeProvider{}
	c := newTestConsumer(dispatcher.New(provider), nil)
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), delivery(ack,
		`{"id":"A8","type":"UserRegistration","data":{"UserEmail":"g@x.com"}}`))

	assert.Equal(t, 1, ack.acks)
	assert.Len(t, provider.sent, 1)
}

func TestProcessDeliveryOverwritesTimestamp(t *testing.T) {
	provider := &fakeProvider{}
	c := newTestConsumer(dispatcher.New(provider), nil)

	dec := c.processDelivery(context.Background(),
		[]byte(`{"id":"A9","type":"UserRegistration","timestamp":"2020-01-01T00:00:00Z","data":{"UserEmail":"h@x.com"}}`))

	require.NotNil(t, dec.event)
	assert.Equal(t, Delivered, dec.class)
	assert.Equal(t, fixedNow, dec.event.Timestamp, "timestamp reflects processing time")
}

func TestApplyAck(t *testing.T) {
	cases := []struct {
		action      AckAction
		wantAcks    int
		wantNacks   []bool
		wantRejects []bool
	}{
		{action: Ack, wantAcks: 1},
		{action: Reject, wantRejects: []bool{false}},
		{action: NackDrop, wantNacks: []bool{false}},
		{action: NackRequeue, wantNacks: []bool{true}},
	}

	for _, tc := range cases {
		ack := &fakeAcknowledger{}
		d := delivery(ack, ``)
		require.NoError(t, applyAck(d, tc.action))
		assert.Equal(t, tc.wantAcks, ack.acks)
		assert.Equal(t, tc.wantNacks, ack.nacks)
		assert.Equal(t, tc.wantRejects, ack.rejects)
	}
}
