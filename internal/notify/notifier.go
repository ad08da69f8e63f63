// Package notify emits circulation notices to external delivery services.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/redis"
)

const (
	KindHoldReady = "hold_ready"
	KindOverdue   = "overdue"
)

// HoldReadyNotice tells a user a copy is being held for them.
type HoldReadyNotice struct {
	TitleID  uuid.UUID `json:"title_id"`
	CopyID   uuid.UUID `json:"copy_id"`
	UserID   uuid.UUID `json:"user_id"`
	BranchID uuid.UUID `json:"branch_id"`
	HeldAt   time.Time `json:"held_at"`
}

// OverdueNotice tells a borrower a loan is past due.
type OverdueNotice struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	CopyID      uuid.UUID       `json:"copy_id"`
	BorrowerID  uuid.UUID       `json:"borrower_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	DueAt       time.Time       `json:"due_at"`
	DaysOverdue int             `json:"days_overdue"`
	Fine        decimal.Decimal `json:"fine"`
}

type envelope struct {
	Kind     string    `json:"kind"`
	SentAt   time.Time `json:"sent_at"`
	Payload  any       `json:"payload"`
	NoticeID uuid.UUID `json:"notice_id"`
}

// Notifier delivers notices. Implementations must be safe for concurrent use.
type Notifier interface {
	HoldReady(ctx context.Context, notice HoldReadyNotice) error
	Overdue(ctx context.Context, notice OverdueNotice) error
}

// Nop drops every notice.
type Nop struct{}

func (Nop) HoldReady(context.Context, HoldReadyNotice) error { return nil }
func (Nop) Overdue(context.Context, OverdueNotice) error     { return nil }

// PublisherParams wire the redis-backed notifier.
type PublisherParams struct {
	Publisher      redis.Publisher
	HoldChannel    string
	OverdueChannel string
	Timeout        time.Duration
	Logger         *logger.Logger
	Clock          func() time.Time
}

// Publisher encodes notices as JSON envelopes and publishes them on redis channels.
type Publisher struct {
	pub            redis.Publisher
	holdChannel    string
	overdueChannel string
	timeout        time.Duration
	logg           *logger.Logger
	now            func() time.Time
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	if params.Publisher == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	if params.HoldChannel == "" || params.OverdueChannel == "" {
		return nil, fmt.Errorf("notice channels required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Publisher{
		pub:            params.Publisher,
		holdChannel:    params.Publisher.ChannelName(params.HoldChannel),
		overdueChannel: params.Publisher.ChannelName(params.OverdueChannel),
		timeout:        params.Timeout,
		logg:           logg,
		now:            clock,
	}, nil
}

func (p *Publisher) HoldReady(ctx context.Context, notice HoldReadyNotice) error {
	return p.publish(ctx, p.holdChannel, KindHoldReady, notice)
}

func (p *Publisher) Overdue(ctx context.Context, notice OverdueNotice) error {
	return p.publish(ctx, p.overdueChannel, KindOverdue, notice)
}

func (p *Publisher) publish(ctx context.Context, channel, kind string, payload any) error {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(envelope{
		Kind:     kind,
		SentAt:   p.now(),
		Payload:  payload,
		NoticeID: uuid.New(),
	})
	if err != nil {
		return fmt.Errorf("encode %s notice: %w", kind, err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.pub.Publish(ctx, channel, body); err != nil {
		p.logg.Error(p.logg.WithFields(ctx, map[string]any{"channel": channel, "kind": kind}), "notice publish failed", err)
		return fmt.Errorf("publish %s notice: %w", kind, err)
	}
	return nil
}

// Decode parses a published envelope, returning its kind and raw payload.
func Decode(body []byte) (string, jsoniter.RawMessage, error) {
	var raw struct {
		Kind    string              `json:"kind"`
		Payload jsoniter.RawMessage `json:"payload"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &raw); err != nil {
		return "", nil, fmt.Errorf("decode notice: %w", err)
	}
	return raw.Kind, raw.Payload, nil
}
