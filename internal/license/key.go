package license

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	KeyPrefix = "PRIMA"

	keyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keySegments    = 3
	keySegmentSize = 4
)

// GenerateKey returns a new random key of the form PRIMA-XXXX-XXXX-XXXX.
// Uniqueness is probabilistic; callers do not check the store.
func GenerateKey() string {
	var sb strings.Builder

	sb.Grow(len(KeyPrefix) + keySegments*(keySegmentSize+1))
	sb.WriteString(KeyPrefix)

	alphabetSize := big.NewInt(int64(len(keyAlphabet)))

	for range keySegments {
		sb.WriteByte('-')

		for range keySegmentSize {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				panic("license: reading random source: " + err.Error())
			}

			sb.WriteByte(keyAlphabet[n.Int64()])
		}
	}

	return sb.String()
}
