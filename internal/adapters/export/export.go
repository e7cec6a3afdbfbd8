// Package export writes windowed timelines as a document keyed by window
// start, in window order.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/gridcast/internal/domain/describe"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/timeline"
	"gopkg.in/yaml.v3"
)

// TimeLayout formats window keys and event_time values.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Annotation keys added to every exported event.
const (
	KeyEventType        = "event_type"
	KeyEventTime        = "event_time"
	KeyEventDescription = "event_description"
	KeyDriverName       = "driver_name"
	KeyOvertakingDriver = "overtaking_driver_name"
	KeyOvertakenDriver  = "overtaken_driver_name"
)

// Format selects the document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Sentinel error kinds for this package.
var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrWrite         = errors.New("failed to write export")
)

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Entry is one window of the document.
type Entry struct {
	Key    string
	Events []map[string]any
}

// Document is the ordered window document.
type Document struct {
	Entries []Entry
}

// Build annotates every window's events with s.
func Build(windows []timeline.Window, s *describe.Synthesizer) Document {
	doc := Document{Entries: make([]Entry, len(windows))}
	for i, w := range windows {
		events := make([]map[string]any, len(w.Events))
		for j, e := range w.Events {
			events[j] = Annotate(e, s)
		}
		doc.Entries[i] = Entry{Key: w.Start.Format(TimeLayout), Events: events}
	}
	return doc
}

// Annotate copies the raw attributes of e and adds its type, time,
// description and driver names. e's attributes are not modified.
func Annotate(e *model.Event, s *describe.Synthesizer) map[string]any {
	out := make(map[string]any, len(e.Attributes)+5)
	maps.Copy(out, e.Attributes)

	out[KeyEventType] = e.Category.String()
	out[KeyEventTime] = e.Timestamp.Format(TimeLayout)
	out[KeyEventDescription] = s.Describe(e)

	switch p := e.Payload.(type) {
	case model.Overtake:
		out[KeyOvertakingDriver] = s.DriverName(p.OvertakingDriverNumber)
		out[KeyOvertakenDriver] = s.DriverName(p.OvertakenDriverNumber)
	case model.Position:
		out[KeyDriverName] = s.DriverName(p.DriverNumber)
	case model.Lap:
		out[KeyDriverName] = s.DriverName(p.DriverNumber)
	case model.PitStop:
		out[KeyDriverName] = s.DriverName(p.DriverNumber)
	}
	return out
}

// Len returns the number of windows.
func (d Document) Len() int { return len(d.Entries) }

// MarshalJSON writes the windows as one object with keys in window order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range d.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		events := entry.Events
		if events == nil {
			events = []map[string]any{}
		}
		val, err := json.Marshal(events)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", entry.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML builds a mapping node with keys in window order.
func (d Document) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range d.Entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Key}
		val := &yaml.Node{}
		events := make([]any, len(entry.Events))
		for i, e := range entry.Events {
			events[i] = yamlValue(e)
		}
		if err := val.Encode(events); err != nil {
			return nil, fmt.Errorf("window %s: %w", entry.Key, err)
		}
		root.Content = append(root.Content, key, val)
	}
	return root, nil
}

// yamlValue turns json.Number into a native number so YAML does not quote it.
func yamlValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = yamlValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = yamlValue(vv)
		}
		return out
	}
	return v
}

// Encode writes d to w in the given format.
func Encode(w io.Writer, d Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteFile writes d to path through a temporary file in the same directory,
// so readers never see a partial document.
func WriteFile(path string, d Document, format Format) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, d, format); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}
