package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{channel: channel, payload: payload})
	return nil
}

func (f *fakePublisher) ChannelName(name string) string {
	return "st:notice:" + name
}

func newTestPublisher(t *testing.T, pub *fakePublisher) *Publisher {
	t.Helper()
	p, err := NewPublisher(PublisherParams{
		Publisher:      pub,
		HoldChannel:    "holds",
		OverdueChannel: "overdue",
		Timeout:        time.Second,
		Clock:          func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return p
}

func TestPublisherHoldReady(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestPublisher(t, pub)
	notice := HoldReadyNotice{TitleID: uuid.New(), CopyID: uuid.New(), UserID: uuid.New(), BranchID: uuid.New()}

	require.NoError(t, p.HoldReady(context.Background(), notice))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "st:notice:holds", pub.sent[0].channel)

	kind, raw, err := Decode(pub.sent[0].payload)
	require.NoError(t, err)
	assert.Equal(t, KindHoldReady, kind)
	var got HoldReadyNotice
	require.NoError(t, jsoniter.Unmarshal(raw, &got))
	assert.Equal(t, notice.CopyID, got.CopyID)
	assert.Equal(t, notice.UserID, got.UserID)
}

func TestPublisherOverdue(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestPublisher(t, pub)

	require.NoError(t, p.Overdue(context.Background(), OverdueNotice{
		LoanID:      uuid.New(),
		DaysOverdue: 3,
		Fine:        decimal.RequireFromString("0.75"),
	}))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "st:notice:overdue", pub.sent[0].channel)

	kind, raw, err := Decode(pub.sent[0].payload)
	require.NoError(t, err)
	assert.Equal(t, KindOverdue, kind)
	var got OverdueNotice
	require.NoError(t, jsoniter.Unmarshal(raw, &got))
	assert.Equal(t, 3, got.DaysOverdue)
	assert.True(t, got.Fine.Equal(decimal.RequireFromString("0.75")))
}

func TestPublisherSurfacesErrors(t *testing.T) {
	p := newTestPublisher(t, &fakePublisher{err: errors.New("connection refused")})
	err := p.HoldReady(context.Background(), HoldReadyNotice{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewPublisherValidatesParams(t *testing.T) {
	_, err := NewPublisher(PublisherParams{})
	assert.Error(t, err)
	_, err = NewPublisher(PublisherParams{Publisher: &fakePublisher{}})
	assert.Error(t, err)
}
