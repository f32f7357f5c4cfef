// Package local provides an in-process transport group for P workers
// running as goroutines in one process. It exists so the algorithmic
// core can run and be tested single-process before attaching the
// distributed transport.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/optgrid/simplex-core/internal/transport"
)

// Group coordinates the collectives of a fixed set of in-process
// members. Members identify collectives by a per-member call sequence
// number; because every member issues the same collectives in the same
// order, equal sequence numbers meet in the same exchange.
type Group struct {
	size  int
	mu    sync.Mutex
	calls map[uint64]*call
}

type call struct {
	op      string
	pending int
	ints    []int
	parts   [][]float64
	done    chan struct{}
	sum     int
	out     []float64
	err     error
}

// NewGroup creates a group of the given size.
func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	return &Group{
		size:  size,
		calls: make(map[uint64]*call),
	}, nil
}

// Size returns the number of members.
func (g *Group) Size() int {
	return g.size
}

// Member returns the transport handle for the given rank. Each handle
// must be driven by a single goroutine.
func (g *Group) Member(rank int) (transport.Transport, error) {
	if rank < 0 || rank >= g.size {
		return nil, fmt.Errorf("rank %d outside group of size %d", rank, g.size)
	}
	return &member{group: g, rank: rank}, nil
}

// Members returns handles for all ranks in rank order.
func (g *Group) Members() []transport.Transport {
	out := make([]transport.Transport, g.size)
	for r := 0; r < g.size; r++ {
		out[r], _ = g.Member(r)
	}
	return out
}

type member struct {
	group *Group
	rank  int
	seq   uint64
}

func (m *member) Rank() int {
	return m.rank
}

func (m *member) Size() int {
	return m.group.size
}

func (m *member) ReduceSum(ctx context.Context, value int) (int, error) {
	c, err := m.collect(ctx, opReduceSum, value, nil)
	if err != nil {
		return 0, err
	}
	return c.sum, nil
}

func (m *member) AllGather(ctx context.Context, local []float64) ([]float64, error) {
	c, err := m.collect(ctx, opGather, 0, local)
	if err != nil {
		return nil, err
	}
	return c.out, nil
}

func (m *member) AllGatherV(ctx context.Context, local []float64) ([]float64, error) {
	c, err := m.collect(ctx, opGatherV, 0, local)
	if err != nil {
		return nil, err
	}
	return c.out, nil
}

const (
	opReduceSum = "reduce_sum"
	opGather    = "gather"
	opGatherV   = "gatherv"
)

// collect contributes to the member's next collective and blocks until
// the whole group has contributed or ctx is done. The result slices
// are shared by all members and must be treated as read-only.
func (m *member) collect(ctx context.Context, op string, iv int, fv []float64) (*call, error) {
	m.seq++

	g := m.group
	g.mu.Lock()
	c := g.calls[m.seq]
	if c == nil {
		c = &call{
			op:      op,
			pending: g.size,
			ints:    make([]int, g.size),
			parts:   make([][]float64, g.size),
			done:    make(chan struct{}),
		}
		g.calls[m.seq] = c
	}
	if c.op != op {
		c.err = fmt.Errorf("%w: rank %d ran %s against %s", transport.ErrProtocol, m.rank, op, c.op)
	}
	c.ints[m.rank] = iv
	c.parts[m.rank] = append([]float64(nil), fv...)
	c.pending--
	if c.pending == 0 {
		c.finish()
		delete(g.calls, m.seq)
		close(c.done)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finish combines the contributions; called with the group lock held
// by the last arriving member.
func (c *call) finish() {
	if c.err != nil {
		return
	}
	switch c.op {
	case opReduceSum:
		for _, v := range c.ints {
			c.sum += v
		}
	case opGather:
		width := len(c.parts[0])
		for _, p := range c.parts {
			if len(p) != width {
				c.err = transport.ErrSizeMismatch
				return
			}
		}
		fallthrough
	case opGatherV:
		total := 0
		for _, p := range c.parts {
			total += len(p)
		}
		c.out = make([]float64, 0, total)
		for _, p := range c.parts {
			c.out = append(c.out, p...)
		}
	}
}
