package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// FileFormat represents the supported catalog file encodings
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatJSON
	FormatYAML
	FormatTOML
	FormatMsgpack
)

// FormatInfo contains metadata about a catalog file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON catalog",
		Extensions:  []string{".json"},
	},
	FormatYAML: {
		Format:      FormatYAML,
		Description: "YAML catalog",
		Extensions:  []string{".yaml", ".yml"},
	},
	FormatTOML: {
		Format:      FormatTOML,
		Description: "TOML catalog",
		Extensions:  []string{".toml"},
	},
	FormatMsgpack: {
		Format:      FormatMsgpack,
		Description: "msgpack snapshot",
		Extensions:  []string{".msgpack", ".bin"},
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// catalogFile is the on-disk document shape shared by every format.
type catalogFile struct {
	Entries []*Entry `json:"entries" yaml:"entries" toml:"entries" msgpack:"entries"`
}

// DetectFileFormat picks a format from the file extension.
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e == ext {
				return format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("unable to detect catalog format for %s", filename)
}

// ReadFile decodes a catalog file into entries, in file order.
func ReadFile(filename string) ([]*Entry, error) {
	format, err := DetectFileFormat(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", filename, err)
	}
	entries, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s (%s): %w", filename, format, err)
	}
	log.Debugf("Read %d entries from %s", len(entries), filename)
	return entries, nil
}

// Decode parses catalog data in the given format and normalizes statuses.
// JSON input may also be a bare array of entries.
func Decode(format FileFormat, data []byte) ([]*Entry, error) {
	var doc catalogFile
	var err error

	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &doc.Entries)
		} else {
			err = json.Unmarshal(trimmed, &doc)
		}
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
	if err != nil {
		return nil, err
	}

	for _, e := range doc.Entries {
		if e == nil {
			continue
		}
		e.Status = ParseStatus(string(e.Status), e.Copies)
	}
	return doc.Entries, nil
}

// WriteSnapshot stores the snapshot as a msgpack file, so the next start can
// load it without going to the source.
func WriteSnapshot(path string, snap *Snapshot) error {
	data, err := msgpack.Marshal(catalogFile{Entries: snap.Entries()})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
