package natsx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Gopher0727/FeedbackBot/config"
)

const msgIDHeader = "Nats-Msg-Id"

var ErrNoServers = errors.New("nats servers missing")

// Message is a received NATS message with its headers flattened.
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

type Handler func(ctx context.Context, msg Message) error

// Client is a thin core-NATS wrapper. Publishes carry a Nats-Msg-Id header so
// a JetStream stream bound to the subject can deduplicate them.
type Client struct {
	cfg config.NATSConfig
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

func options(cfg config.NATSConfig) []nats.Option {
	reconnectWait := cfg.ReconnectWait
	if reconnectWait == 0 {
		reconnectWait = 500 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(timeout),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return opts
}

func Connect(cfg config.NATSConfig) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), options(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &Client{cfg: cfg, nc: nc}, nil
}

// Publish sends data on subject. An empty msgID is replaced by a random one.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, hdr map[string]string, msgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMsg(subject, data, hdr, msgID)
	if err := c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func buildMsg(subject string, data []byte, hdr map[string]string, msgID string) *nats.Msg {
	if msgID == "" {
		msgID = uuid.NewString()
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Set(k, v)
	}
	msg.Header.Set(msgIDHeader, msgID)
	return msg
}

// Subscribe registers h on subject, optionally within a queue group.
func (c *Client) Subscribe(subject, queue string, h Handler) error {
	cb := func(m *nats.Msg) {
		_ = h(context.Background(), Message{
			Subject: m.Subject,
			Data:    append([]byte(nil), m.Data...),
			Header:  headerToMap(m.Header),
		})
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = c.nc.Subscribe(subject, cb)
	} else {
		sub, err = c.nc.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

// Flush waits until the server has processed everything published so far.
func (c *Client) Flush() error {
	return c.nc.Flush()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		_ = sub.Drain()
	}
	c.subs = nil
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
