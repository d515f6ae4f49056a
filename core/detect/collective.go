package detect

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// coordinator is the rank that runs the global reductions.
const coordinator = 0

// Comm is one rank's endpoint in a lockstep worker group. Every rank must
// issue the same sequence of collective calls.
type Comm interface {
	Rank() int
	Size() int
	// Gather delivers every rank's payload to the coordinator in rank order.
	// Other ranks get nil.
	Gather(ctx context.Context, payload []byte) ([][]byte, error)
	// Broadcast delivers the coordinator's payload to every rank.
	Broadcast(ctx context.Context, payload []byte) ([]byte, error)
}

type message struct {
	seq     uint64
	rank    int
	payload []byte
}

// LocalGroup connects in-process workers through channels.
type LocalGroup struct {
	size    int
	gather  chan message
	bcast   []chan message
	members []*localComm
}

// NewLocalGroup creates a group of size ranks.
func NewLocalGroup(size int) *LocalGroup {
	g := &LocalGroup{
		size:    size,
		gather:  make(chan message, 4*size),
		bcast:   make([]chan message, size),
		members: make([]*localComm, size),
	}
	for r := range size {
		g.bcast[r] = make(chan message, 1)
		g.members[r] = &localComm{group: g, rank: r, pending: map[uint64][]message{}}
	}
	return g
}

// Comm returns the endpoint of the given rank.
func (g *LocalGroup) Comm(rank int) Comm {
	return g.members[rank]
}

type localComm struct {
	group   *LocalGroup
	rank    int
	seq     uint64
	pending map[uint64][]message // early gather messages, coordinator only
}

var _ Comm = &localComm{} // Compile-time check

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.group.size }

func (c *localComm) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	seq := c.seq
	c.seq++
	if c.group.size == 1 {
		return [][]byte{payload}, nil
	}

	if c.rank != coordinator {
		select {
		case c.group.gather <- message{seq: seq, rank: c.rank, payload: payload}:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	parts := make([][]byte, c.group.size)
	parts[coordinator] = payload
	received := 1
	for _, msg := range c.pending[seq] {
		parts[msg.rank] = msg.payload
		received++
	}
	delete(c.pending, seq)
	for received < c.group.size {
		select {
		case msg := <-c.group.gather:
			if msg.seq != seq {
				c.pending[msg.seq] = append(c.pending[msg.seq], msg)
				continue
			}
			parts[msg.rank] = msg.payload
			received++
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return parts, nil
}

func (c *localComm) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	if c.group.size == 1 {
		return payload, nil
	}

	if c.rank == coordinator {
		for r := range c.group.size {
			if r == coordinator {
				continue
			}
			select {
			case c.group.bcast[r] <- message{rank: coordinator, payload: payload}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return payload, nil
	}

	select {
	case msg := <-c.group.bcast[c.rank]:
		return msg.payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// gatherValue collects v from every rank at the coordinator, in rank order.
// Non-coordinator ranks get nil. A one-rank group skips encoding.
func gatherValue[T any](ctx context.Context, c Comm, v T) ([]T, error) {
	if c.Size() == 1 {
		return []T{v}, nil
	}
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gather payload: %w", err)
	}
	parts, err := c.Gather(ctx, payload)
	if err != nil || c.Rank() != coordinator {
		return nil, err
	}

	out := make([]T, len(parts))
	for r, part := range parts {
		if r == coordinator {
			out[r] = v
			continue
		}
		if err := msgpack.Unmarshal(part, &out[r]); err != nil {
			return nil, fmt.Errorf("failed to decode payload from rank %d: %w", r, err)
		}
	}
	return out, nil
}

// broadcastValue hands the coordinator's v to every rank. Other ranks decode
// their own copy, so no two ranks share memory.
func broadcastValue[T any](ctx context.Context, c Comm, v T) (T, error) {
	if c.Size() == 1 {
		return v, nil
	}
	var payload []byte
	if c.Rank() == coordinator {
		var err error
		if payload, err = msgpack.Marshal(v); err != nil {
			return v, fmt.Errorf("failed to encode broadcast payload: %w", err)
		}
	}
	got, err := c.Broadcast(ctx, payload)
	if err != nil || c.Rank() == coordinator {
		return v, err
	}

	var out T
	if err := msgpack.Unmarshal(got, &out); err != nil {
		return out, fmt.Errorf("failed to decode broadcast payload: %w", err)
	}
	return out, nil
}
