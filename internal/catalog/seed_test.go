package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/catalog"
	"github.com/primadev/licensehub/internal/license"
)

func TestParseSeed_JSON(t *testing.T) {
	input := `{
		"struk-spbu": {"name": "Struk SPBU", "price": {"monthly": 50000, "yearly": 500000}},
		"kasir": {"name": "Kasir Café", "price": {"lifetime": 1500000}}
	}`

	c, err := catalog.ParseSeed(strings.NewReader(input), catalog.FormatJSON)
	require.NoError(t, err)
	require.Len(t, c, 2)

	assert.Equal(t, "struk-spbu", c["struk-spbu"].AppID)
	assert.Equal(t, int64(500000), c["struk-spbu"].Prices[license.DurationYearly])
	assert.Equal(t, "Kasir Café", c["kasir"].Name)
}

func TestParseSeed_YAML(t *testing.T) {
	input := `
struk-spbu:
  name: Struk SPBU
  price:
    monthly: 50000
`

	c, err := catalog.ParseSeed(strings.NewReader(input), catalog.FormatYAML)
	require.NoError(t, err)

	price, ok := c["struk-spbu"].Price(license.DurationMonthly)
	assert.True(t, ok)
	assert.Equal(t, int64(50000), price)
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := catalog.ParseSeed(strings.NewReader(`{"a":`), catalog.FormatJSON)
	assert.Error(t, err)

	_, err = catalog.ParseSeed(strings.NewReader(`{"a": null}`), catalog.FormatJSON)
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		c, err := catalog.LoadSeed(filepath.Join(dir, "missing.json"))
		require.NoError(t, err)
		assert.Empty(t, c)
	})

	t.Run("YAMLByExtension", func(t *testing.T) {
		path := filepath.Join(dir, "products.yml")
		require.NoError(t, os.WriteFile(path, []byte("kasir:\n  name: Kasir\n  price:\n    yearly: 100\n"), 0o600))

		c, err := catalog.LoadSeed(path)
		require.NoError(t, err)
		assert.Equal(t, "Kasir", c["kasir"].Name)
	})
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, catalog.FormatYAML, catalog.FormatFromPath("seed/products.YAML"))
	assert.Equal(t, catalog.FormatJSON, catalog.FormatFromPath("products.json"))
	assert.Equal(t, catalog.FormatJSON, catalog.FormatFromPath("products"))
}
