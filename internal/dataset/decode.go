package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/planeval/internal/model"
)

// Format is the container format of a run file
type Format string

const (
	FormatJSON  Format = "json"  // A JSON array of records, or concatenated objects
	FormatJSONL Format = "jsonl" // One JSON record per line
	FormatYAML  Format = "yaml"  // A YAML sequence of records
)

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported run file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads every item of a run file. A positive limit keeps only the first limit items.
func LoadFile(path string, limit int) ([]model.Item, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := DecodeItems(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DecodeItems decodes records from r in the given format
func DecodeItems(r io.Reader, format Format) ([]model.Item, error) {
	var records []record
	var err error

	switch format {
	case FormatJSON, FormatJSONL:
		records, err = decodeJSON(r)
	case FormatYAML:
		records, err = decodeYAML(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(records))
	for i, rec := range records {
		item, err := rec.item()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeJSON accepts a single array or a stream of objects, which covers JSONL
func decodeJSON(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var records []record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var records []record
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeYAML(r io.Reader) ([]record, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
