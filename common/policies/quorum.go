package policies

import "github.com/pkg/errors"

// ErrInvalidNodeCount is returned when a quorum is requested for fewer than one node.
var ErrInvalidNodeCount = errors.New("invalid node count")

// MaxFaulty returns the number of byzantine nodes f that a BFT cluster of n nodes tolerates.
func MaxFaulty(n int) (int, error) {
	if n < 1 {
		return 0, errors.Wrapf(ErrInvalidNodeCount, "node count must be positive, got %d", n)
	}
	return (n - 1) / 3, nil
}

// ComputeBFTQuorum returns the number of signatures required to certify a block
// in a BFT cluster of n nodes: ceil((n + f + 1) / 2) with f = floor((n - 1) / 3).
func ComputeBFTQuorum(n int) (int, error) {
	f, err := MaxFaulty(n)
	if err != nil {
		return 0, err
	}
	// ceil(x/2) == (x+1)/2 for non-negative integers
	return (n + f + 2) / 2, nil
}
