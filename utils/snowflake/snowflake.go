package snowflake

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

const (
	// Epoch is the custom epoch (January 1, 2024 00:00:00 UTC) in milliseconds.
	Epoch int64 = 1704067200000

	NodeBits     uint8 = 10
	SequenceBits uint8 = 12

	MaxNode      = -1 ^ (-1 << NodeBits)
	sequenceMask = -1 ^ (-1 << SequenceBits)
	nodeShift    = SequenceBits
	timeShift    = SequenceBits + NodeBits
)

var (
	ErrInvalidNode         = errors.New("node id out of range")
	ErrClockMovedBackwards = errors.New("clock moved backwards")
)

// Generator hands out time ordered 63-bit ids unique per node.
type Generator struct {
	mu sync.Mutex

	node  int64
	clock func() time.Time

	sequence      int64
	lastTimestamp int64
}

type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) { g.clock = clock }
}

func NewGenerator(node int64, opts ...Option) (*Generator, error) {
	if node < 0 || node > MaxNode {
		return nil, ErrInvalidNode
	}
	g := &Generator{node: node, clock: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.millis()
	if ts < g.lastTimestamp {
		return 0, ErrClockMovedBackwards
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for ts <= g.lastTimestamp {
				ts = g.millis()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = ts

	return (ts-Epoch)<<timeShift | g.node<<nodeShift | g.sequence, nil
}

// NextString is NextID rendered in base 10.
func (g *Generator) NextString() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (g *Generator) millis() int64 {
	return g.clock().UnixMilli()
}

// Time extracts the creation time encoded in id.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timeShift) + Epoch).UTC()
}

func Node(id int64) int64 {
	return (id >> nodeShift) & MaxNode
}

func Sequence(id int64) int64 {
	return id & sequenceMask
}
