package core

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// ErrUnsupportedFormat is returned when no format is registered for a file
// extension.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// FormatDefinition describes one tabular file format: how to recognise it,
// read it into a working table and write a table back out.
type FormatDefinition struct {
	Key   string // Short name used in query strings, e.g. "csv"
	Ext   string // Lower-case extension including the dot, e.g. ".csv"
	MIME  string // Content type of exported files
	Label string // Human readable name for the UI

	Read  func(data []byte) (*frame.Table, error)
	Write func(w io.Writer, t *frame.Table) error
}

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

// RegisterFormat adds a format definition to the registry.
// Panics if a format with the same key or extension is already registered.
func RegisterFormat(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	def.Ext = strings.ToLower(def.Ext)
	for _, existing := range registry {
		if existing.Key == def.Key || existing.Ext == def.Ext {
			panic(fmt.Sprintf("format already registered: %s (%s)", def.Key, def.Ext))
		}
	}

	registry[def.Key] = def
}

// FormatByKey returns a format definition by key.
// Returns false if not found.
func FormatByKey(key string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[strings.ToLower(key)]
	return def, ok
}

// FormatForFile returns the format registered for the file's extension.
func FormatForFile(name string) (FormatDefinition, error) {
	ext := strings.ToLower(filepath.Ext(name))

	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if def.Ext == ext {
			return def, nil
		}
	}
	if ext == "" {
		ext = "(none)"
	}
	return FormatDefinition{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Formats returns all registered formats sorted by key.
func Formats() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// AcceptedExtensions returns the registered extensions, comma separated, for
// use in a file input's accept attribute.
func AcceptedExtensions() string {
	defs := Formats()
	exts := make([]string, len(defs))
	for i, def := range defs {
		exts[i] = def.Ext
	}
	return strings.Join(exts, ",")
}

// ClearFormats removes all registered formats.
// Primarily useful for testing.
func ClearFormats() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]FormatDefinition)
}
