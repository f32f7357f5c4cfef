package grpcnet

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/optgrid/simplex-core/pkg/utils"
)

// startCoordinator serves a coordinator for size members on a loopback
// listener and returns its dial target.
func startCoordinator(t *testing.T, size int) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	coord, err := NewCoordinator(size)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	srv := grpc.NewServer()
	coord.Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func dialMember(t *testing.T, target string, rank, size int) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, target, rank, size, WithCollectTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("Dial rank %d failed: %v", rank, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestReduceSumOverLoopback(t *testing.T) {
	target := startCoordinator(t, 2)
	members := []*Client{
		dialMember(t, target, 0, 2),
		dialMember(t, target, 1, 2),
	}

	sums := make([]int, 2)
	var eg errgroup.Group
	for rank, m := range members {
		rank, m := rank, m
		eg.Go(func() error {
			sum, err := m.ReduceSum(context.Background(), (rank+1)*10)
			if err != nil {
				return err
			}
			sums[rank] = sum
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("ReduceSum failed: %v", err)
	}

	for rank, sum := range sums {
		if sum != 30 {
			t.Errorf("rank %d got sum %d, want 30", rank, sum)
		}
	}
}

func TestGathersOverLoopback(t *testing.T) {
	target := startCoordinator(t, 2)
	members := []*Client{
		dialMember(t, target, 0, 2),
		dialMember(t, target, 1, 2),
	}

	fixed := make([][]float64, 2)
	variable := make([][]float64, 2)
	var eg errgroup.Group
	for rank, m := range members {
		rank, m := rank, m
		eg.Go(func() error {
			out, err := m.AllGather(context.Background(), []float64{float64(rank), float64(rank)})
			if err != nil {
				return err
			}
			fixed[rank] = out

			var payload []float64
			if rank == 0 {
				payload = []float64{1, 2, 3}
			} else {
				payload = []float64{4}
			}
			out, err = m.AllGatherV(context.Background(), payload)
			if err != nil {
				return err
			}
			variable[rank] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	wantFixed := []float64{0, 0, 1, 1}
	wantVariable := []float64{1, 2, 3, 4}
	for rank := 0; rank < 2; rank++ {
		if !utils.EqualVec(fixed[rank], wantFixed) {
			t.Errorf("rank %d AllGather = %v, want %v", rank, fixed[rank], wantFixed)
		}
		if !utils.EqualVec(variable[rank], wantVariable) {
			t.Errorf("rank %d AllGatherV = %v, want %v", rank, variable[rank], wantVariable)
		}
	}
}

func TestCoordinatorRejectsBadRequests(t *testing.T) {
	coord, err := NewCoordinator(1)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	tests := []struct {
		name string
		req  *CollectRequest
		code codes.Code
	}{
		{"nil request", nil, codes.InvalidArgument},
		{"rank out of range", &CollectRequest{Op: opReduceSum, Rank: 3}, codes.InvalidArgument},
		{"unknown op", &CollectRequest{Op: "broadcast", Rank: 0}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coord.Collect(context.Background(), tt.req)
			if status.Code(err) != tt.code {
				t.Errorf("Collect returned %v, want code %v", err, tt.code)
			}
		})
	}
}

func TestCoordinatorRejectsDuplicateContribution(t *testing.T) {
	coord, err := NewCoordinator(2)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan error, 1)
	go func() {
		_, err := coord.Collect(ctx, &CollectRequest{Op: opReduceSum, Seq: 1, Rank: 0, Int: 1})
		first <- err
	}()

	// wait until the first contribution is registered
	deadline := time.After(2 * time.Second)
	for {
		coord.mu.Lock()
		registered := coord.calls[1] != nil
		coord.mu.Unlock()
		if registered {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first contribution never registered")
		case <-time.After(time.Millisecond):
		}
	}

	_, err = coord.Collect(context.Background(), &CollectRequest{Op: opReduceSum, Seq: 1, Rank: 0, Int: 1})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("duplicate contribution returned %v, want FailedPrecondition", err)
	}

	cancel()
	if err := <-first; err == nil {
		t.Fatal("expected the abandoned collective to fail on context cancellation")
	}
}

func TestDialRejectsBadRank(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := Dial(ctx, "127.0.0.1:1", 2, 2); err == nil {
		t.Fatal("expected error for rank outside group")
	}
	if _, err := Dial(ctx, "127.0.0.1:1", 0, 0); err == nil {
		t.Fatal("expected error for empty group")
	}
}
