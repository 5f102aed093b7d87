package heatmap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

// Format is a dataset encoding.
type Format string

// Supported dataset encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the dataset format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer dataset format from %q (use .json, .yaml or .toml)", filepath.Base(path))
	}
}

// ParseFormat validates a format name such as "yml" or "JSON".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unknown dataset format %q", s)
	}
}

// Load reads and decodes the dataset at path.
func Load(path string) (*Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode reads a dataset in the given format. JSON input may also be a bare
// array of records.
func Decode(r io.Reader, format Format) (*Dataset, error) {
	var ds Dataset
	switch format {
	case FormatJSON:
		br := bufio.NewReader(r)
		if isJSONArray(br) {
			if err := json.NewDecoder(br).Decode(&ds.Records); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode JSON records")
			}
			return &ds, nil
		}
		if err := json.NewDecoder(br).Decode(&ds); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode JSON dataset")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&ds); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode YAML dataset")
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&ds); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode TOML dataset")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown dataset format %q", format)
	}
	return &ds, nil
}

// Encode writes ds in the given format.
func Encode(w io.Writer, ds *Dataset, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(ds)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown dataset format %q", format)
	}
}

// Marshal encodes ds as compact JSON. The result is stable for equal
// datasets and is used as cache key material.
func Marshal(ds *Dataset) ([]byte, error) {
	return json.Marshal(ds)
}

func isJSONArray(br *bufio.Reader) bool {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return false
		}
		if bytes.ContainsAny(b, " \t\r\n") {
			_, _ = br.ReadByte()
			continue
		}
		return b[0] == '['
	}
}
