package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
	"github.com/Gopher0727/FeedbackBot/utils/snowflake"
)

type Kind string

const (
	KindNewMessage   Kind = "new_message"
	KindReply        Kind = "reply"
	KindTaskAssigned Kind = "task_assigned"
	KindTaskOverdue  Kind = "task_overdue"
	KindDigest       Kind = "digest"
	KindTeamJoined   Kind = "team_joined"
	KindMotivation   Kind = "motivation"
	KindBroadcast    Kind = "broadcast"
	KindAdminCall    Kind = "admin_call"
)

// FormatMarkdown asks the gateway to render Text as Markdown.
const FormatMarkdown = "Markdown"

// Notification is one outbound chat message addressed to a platform identity.
type Notification struct {
	ID        int64     `json:"id,string"`
	Recipient int64     `json:"recipient"`
	Text      string    `json:"text"`
	Format    string    `json:"format,omitempty"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

var ErrNoRecipient = errors.New("notification has no recipient")

// Dispatcher stamps notifications with an id and creation time and hands
// them to the underlying transport under a per-recipient timeout.
type Dispatcher struct {
	next    Notifier
	ids     *snowflake.Generator
	timeout time.Duration
	clock   func() time.Time
	log     *zap.Logger
}

type Option func(*Dispatcher)

func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func NewDispatcher(next Notifier, ids *snowflake.Generator, timeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		next:    next,
		ids:     ids,
		timeout: timeout,
		clock:   time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, n *Notification) error {
	if n.Recipient == 0 {
		return ErrNoRecipient
	}
	if n.ID == 0 {
		id, err := d.ids.NextID()
		if err != nil {
			return fmt.Errorf("notification id: %w", err)
		}
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.clock().UTC()
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.next.Notify(ctx, n); err != nil {
		logger.Ctx(ctx, d.log).Warn("notification dispatch failed",
			zap.Int64("recipient", n.Recipient),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
		return err
	}
	logger.Ctx(ctx, d.log).Debug("notification dispatched",
		zap.Int64("id", n.ID),
		zap.Int64("recipient", n.Recipient),
		zap.String("kind", string(n.Kind)),
	)
	return nil
}

// MultiNotifier sends to every transport and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n *Notification) error {
	var errs []error
	for _, t := range m {
		if err := t.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
