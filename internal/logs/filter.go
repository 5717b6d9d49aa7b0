package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"plaques2gallery/internal/logging"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	PlaqueID  string
	BatchID   string
	Fields    map[string]string
}

// Filter narrows log entries. Zero values match everything.
type Filter struct {
	MinLevel  string
	Component string
	PlaqueID  string
	BatchID   int64
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Empty reports whether the filter matches every entry.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.MinLevel) == "" && strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.PlaqueID) == "" && f.BatchID == 0
}

// Match reports whether the entry passes the filter.
func (f Filter) Match(entry Entry) bool {
	if minLevel := strings.ToLower(strings.TrimSpace(f.MinLevel)); minLevel != "" {
		want, ok := levelRank[minLevel]
		got, known := levelRank[strings.ToLower(entry.Level)]
		if ok && (!known || got < want) {
			return false
		}
	}
	if component := strings.TrimSpace(f.Component); component != "" && !strings.EqualFold(entry.Component, component) {
		return false
	}
	if plaque := strings.TrimSpace(f.PlaqueID); plaque != "" && entry.PlaqueID != plaque {
		return false
	}
	if f.BatchID != 0 && entry.BatchID != strconv.FormatInt(f.BatchID, 10) {
		return false
	}
	return true
}

// Parse decodes a JSON log line written by the file handler.
func Parse(line string) (Entry, error) {
	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(line))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return Entry{}, fmt.Errorf("decode log line: %w", err)
	}
	entry := Entry{Fields: make(map[string]string, len(raw))}
	for key, value := range raw {
		text := stringify(value)
		switch key {
		case "ts", "time":
			entry.Time = text
		case "level":
			entry.Level = strings.ToLower(text)
		case "msg":
			entry.Message = text
		case logging.FieldComponent:
			entry.Component = text
		case logging.FieldPlaqueID:
			entry.PlaqueID = text
		case logging.FieldBatchID:
			entry.BatchID = text
		case "source":
		default:
			entry.Fields[key] = text
		}
	}
	return entry, nil
}

// Apply parses and filters raw lines, returning formatted output. Lines that
// are not JSON pass through only when the filter is empty.
func Apply(lines []string, filter Filter) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := Parse(line)
		if err != nil {
			if filter.Empty() {
				out = append(out, line)
			}
			continue
		}
		if filter.Match(entry) {
			out = append(out, Format(entry))
		}
	}
	return out
}

// Format renders an entry as a single readable line.
func Format(entry Entry) string {
	var b strings.Builder
	b.WriteString(entry.Time)
	fmt.Fprintf(&b, " %-5s", strings.ToUpper(entry.Level))
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)
	if entry.BatchID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldBatchID, entry.BatchID)
	}
	if entry.PlaqueID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldPlaqueID, entry.PlaqueID)
	}
	keys := make([]string, 0, len(entry.Fields))
	for key := range entry.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := entry.Fields[key]
		if strings.ContainsAny(value, " \t\"") {
			value = strconv.Quote(value)
		}
		fmt.Fprintf(&b, " %s=%s", key, value)
	}
	return b.String()
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
