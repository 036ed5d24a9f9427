package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/primadev/licensehub/internal/encoding"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the seed format from the file extension; anything
// that is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadSeed reads the seed catalog at path. A missing file yields an empty
// catalog.
func LoadSeed(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Catalog{}, nil
		}

		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	c, err := ParseSeed(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return c, nil
}

func ParseSeed(r io.Reader, format Format) (Catalog, error) {
	utf8Reader, _, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	var c Catalog

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(utf8Reader).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(utf8Reader).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	}

	if c == nil {
		c = Catalog{}
	}

	for appID, p := range c {
		if p == nil {
			return nil, fmt.Errorf("product %q has no definition", appID)
		}

		p.AppID = appID
	}

	return c, nil
}
