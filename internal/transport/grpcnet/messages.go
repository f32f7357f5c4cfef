package grpcnet

// CollectRequest carries one member's contribution to a collective.
// Seq is the member's collective sequence number; contributions with
// equal Seq meet in the same exchange, which is sound because every
// member issues the same collectives in the same order.
type CollectRequest struct {
	Op   string
	Seq  uint64
	Rank int
	Int  int64
	Vals []float64
}

// CollectResponse returns the combined result of a collective to a
// member. Sum is set for reductions, Vals for gathers.
type CollectResponse struct {
	Sum  int64
	Vals []float64
}
