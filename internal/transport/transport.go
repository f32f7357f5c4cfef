// Package transport defines the collective-communication capability
// the solver runs on. A group is a fixed set of members with stable
// 0-based ranks; every collective blocks until each member has
// contributed exactly once and received the combined result. The
// solver calls the collectives in an identical order on every member,
// which is the group's sole cross-member ordering guarantee.
package transport

import (
	"context"
	"errors"
)

// Transport is one member's handle on the group. Implementations must
// be safe for the member's single logical thread of control; a member
// must never run two collectives concurrently.
type Transport interface {
	// Rank returns this member's 0-based rank within the group.
	Rank() int

	// Size returns the fixed number of group members.
	Size() int

	// ReduceSum sums one integer contribution per member and returns
	// the group total to every member.
	ReduceSum(ctx context.Context, value int) (int, error)

	// AllGather concatenates equal-length contributions in rank order
	// and returns the combined slice to every member. Contributions of
	// differing lengths fail the collective for the whole group.
	AllGather(ctx context.Context, local []float64) ([]float64, error)

	// AllGatherV concatenates variable-length contributions in rank
	// order and returns the combined slice to every member.
	AllGatherV(ctx context.Context, local []float64) ([]float64, error)
}

var (
	// ErrSizeMismatch reports a fixed-size gather whose contributions
	// did not share a length.
	ErrSizeMismatch = errors.New("transport: gather contribution sizes differ")

	// ErrProtocol reports members disagreeing on which collective to
	// run, which means the group has fallen out of lockstep.
	ErrProtocol = errors.New("transport: collective operation mismatch")
)
