package license_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/primadev/licensehub/internal/license"
)

var keyPattern = regexp.MustCompile(`^PRIMA-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerateKey_Format(t *testing.T) {
	for range 500 {
		key := license.GenerateKey()
		assert.Regexp(t, keyPattern, key)
	}
}

func TestGenerateKey_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)

	for range 1000 {
		seen[license.GenerateKey()] = struct{}{}
	}

	assert.Len(t, seen, 1000)
}
