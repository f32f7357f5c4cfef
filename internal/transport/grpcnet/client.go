package grpcnet

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/optgrid/simplex-core/pkg/utils"
)

// Client is one member's handle on a coordinator-backed group. It
// implements the transport capability over a single grpc connection.
type Client struct {
	conn    *grpc.ClientConn
	rank    int
	size    int
	seq     uint64
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCollectTimeout applies a deadline to every collective call. A
// member that never shows up then fails the round instead of stalling
// the group forever.
func WithCollectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects a member to the coordinator at target and waits for
// the connection to become ready, retrying transient failures with
// exponential backoff until ctx is done.
func Dial(ctx context.Context, target string, rank, size int, opts ...Option) (*Client, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d outside group of size %d", rank, size)
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}

	c := &Client{conn: conn, rank: rank, size: size}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.waitReady(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("coordinator %s not reachable: %w", target, err)
	}
	return c, nil
}

func (c *Client) waitReady(ctx context.Context) error {
	bo := utils.NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, true)
	for attempt := 0; ; attempt++ {
		state := c.conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			c.conn.Connect()
		case connectivity.TransientFailure:
			timer := time.NewTimer(bo.NextDelay(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			c.conn.Connect()
		}
		if !c.conn.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// Close tears down the member's connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Rank returns this member's 0-based rank within the group.
func (c *Client) Rank() int {
	return c.rank
}

// Size returns the fixed number of group members.
func (c *Client) Size() int {
	return c.size
}

// ReduceSum sums one integer contribution per member.
func (c *Client) ReduceSum(ctx context.Context, value int) (int, error) {
	resp, err := c.collect(ctx, opReduceSum, int64(value), nil)
	if err != nil {
		return 0, err
	}
	return int(resp.Sum), nil
}

// AllGather concatenates equal-length contributions in rank order.
func (c *Client) AllGather(ctx context.Context, local []float64) ([]float64, error) {
	resp, err := c.collect(ctx, opGather, 0, local)
	if err != nil {
		return nil, err
	}
	return resp.Vals, nil
}

// AllGatherV concatenates variable-length contributions in rank order.
func (c *Client) AllGatherV(ctx context.Context, local []float64) ([]float64, error) {
	resp, err := c.collect(ctx, opGatherV, 0, local)
	if err != nil {
		return nil, err
	}
	return resp.Vals, nil
}

func (c *Client) collect(ctx context.Context, op string, iv int64, fv []float64) (*CollectResponse, error) {
	c.seq++
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &CollectRequest{
		Op:   op,
		Seq:  c.seq,
		Rank: c.rank,
		Int:  iv,
		Vals: fv,
	}
	resp := new(CollectResponse)
	if err := c.conn.Invoke(ctx, collectFullMethod, req, resp); err != nil {
		return nil, fmt.Errorf("collective %s (seq %d) failed: %w", op, c.seq, err)
	}
	return resp, nil
}
