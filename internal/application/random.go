package application

import (
	"crypto/rand"
	"math/big"
)

// pickRandom returns a uniformly chosen element. The slice must be non-empty.
func pickRandom[T any](items []T) T {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(items))))
	if err != nil {
		return items[0]
	}
	return items[n.Int64()]
}
