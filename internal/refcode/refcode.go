// Package refcode generates the human-readable reference codes printed
// on receipts and membership cards (subscription, payment and member
// numbers). Codes embed the current date plus a random suffix and are
// only unique-by-retry: callers insert under a unique constraint and
// regenerate on collision.
package refcode

import (
	"crypto/rand"
	"math/big"
	"time"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// New returns prefix + yymmdd + n random characters from [A-Z0-9].
func New(prefix string, n int) string {
	datePart := time.Now().Format("060102")

	suffix := make([]byte, n)
	for i := range suffix {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic("refcode: entropy source unavailable: " + err.Error())
		}
		suffix[i] = alphabet[idx.Int64()]
	}

	return prefix + datePart + string(suffix)
}
