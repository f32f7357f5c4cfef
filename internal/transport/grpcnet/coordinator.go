package grpcnet

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/optgrid/simplex-core/internal/transport"
	"github.com/optgrid/simplex-core/pkg/logger"
)

const collectFullMethod = "/simplexcore.Collective/Collect"

// Coordinator implements the collective service the group members call
// into. It runs alongside the rank-0 worker; members (rank 0 included)
// reach it as grpc clients, so the star topology gives the same
// blocking collective semantics as a full mesh with far less wiring.
type Coordinator struct {
	size  int
	mu    sync.Mutex
	calls map[uint64]*exchange
}

type exchange struct {
	op      string
	pending int
	seen    []bool
	ints    []int64
	parts   [][]float64
	done    chan struct{}
	sum     int64
	out     []float64
	err     error
}

// NewCoordinator creates a coordinator for a group of the given size.
func NewCoordinator(size int) (*Coordinator, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	return &Coordinator{
		size:  size,
		calls: make(map[uint64]*exchange),
	}, nil
}

// Register attaches the collective service to a grpc server.
func (c *Coordinator) Register(s *grpc.Server) {
	s.RegisterService(&collectiveServiceDesc, c)
}

// Collect receives one member's contribution, blocks until the whole
// group has contributed, and returns the combined result.
func (c *Coordinator) Collect(ctx context.Context, req *CollectRequest) (*CollectResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.Rank < 0 || req.Rank >= c.size {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d outside group of size %d", req.Rank, c.size)
	}
	switch req.Op {
	case opReduceSum, opGather, opGatherV:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown collective op %q", req.Op)
	}

	c.mu.Lock()
	ex := c.calls[req.Seq]
	if ex == nil {
		ex = &exchange{
			op:      req.Op,
			pending: c.size,
			seen:    make([]bool, c.size),
			ints:    make([]int64, c.size),
			parts:   make([][]float64, c.size),
			done:    make(chan struct{}),
		}
		c.calls[req.Seq] = ex
	}
	if ex.op != req.Op {
		ex.err = fmt.Errorf("%w: rank %d ran %s against %s", transport.ErrProtocol, req.Rank, req.Op, ex.op)
	}
	if ex.seen[req.Rank] {
		c.mu.Unlock()
		return nil, status.Errorf(codes.FailedPrecondition, "rank %d contributed twice to seq %d", req.Rank, req.Seq)
	}
	ex.seen[req.Rank] = true
	ex.ints[req.Rank] = req.Int
	ex.parts[req.Rank] = req.Vals
	ex.pending--
	if ex.pending == 0 {
		ex.finish()
		delete(c.calls, req.Seq)
		close(ex.done)
	}
	c.mu.Unlock()

	select {
	case <-ex.done:
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	if ex.err != nil {
		logger.Warn("collective failed", "op", req.Op, "seq", req.Seq, "error", ex.err)
		return nil, status.Error(codes.FailedPrecondition, ex.err.Error())
	}
	return &CollectResponse{Sum: ex.sum, Vals: ex.out}, nil
}

// finish combines the contributions; called with the coordinator lock
// held by the last arriving member.
func (ex *exchange) finish() {
	if ex.err != nil {
		return
	}
	switch ex.op {
	case opReduceSum:
		for _, v := range ex.ints {
			ex.sum += v
		}
	case opGather:
		width := len(ex.parts[0])
		for _, p := range ex.parts {
			if len(p) != width {
				ex.err = transport.ErrSizeMismatch
				return
			}
		}
		fallthrough
	case opGatherV:
		total := 0
		for _, p := range ex.parts {
			total += len(p)
		}
		ex.out = make([]float64, 0, total)
		for _, p := range ex.parts {
			ex.out = append(ex.out, p...)
		}
	}
}

const (
	opReduceSum = "reduce_sum"
	opGather    = "gather"
	opGatherV   = "gatherv"
)

type collectiveService interface {
	Collect(ctx context.Context, req *CollectRequest) (*CollectResponse, error)
}

func collectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CollectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(collectiveService).Collect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: collectFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(collectiveService).Collect(ctx, req.(*CollectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var collectiveServiceDesc = grpc.ServiceDesc{
	ServiceName: "simplexcore.Collective",
	HandlerType: (*collectiveService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Collect",
			Handler:    collectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simplexcore/collective",
}
