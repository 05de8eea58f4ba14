package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one decoded record from a run log.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Stage   string
	Fields  map[string]any
}

// keys the run directory already implies or the line prefix shows.
var implicitKeys = map[string]bool{
	"ts": true, "level": true, "msg": true, "stage": true, "run_id": true, "kind": true,
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Parse decodes a JSON log line. Lines that are not JSON objects report false.
func Parse(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{Fields: make(map[string]any)}
	for key, value := range raw {
		text, _ := value.(string)
		switch key {
		case "ts":
			entry.Time, _ = time.Parse(time.RFC3339, text)
		case "level":
			entry.Level = strings.ToLower(text)
		case "msg":
			entry.Message = text
		case "stage":
			entry.Stage = text
		}
		if !implicitKeys[key] {
			entry.Fields[key] = value
		}
	}
	return entry, true
}

// AtLeast reports whether the entry's level is at or above min. Unknown
// levels always pass.
func (e Entry) AtLeast(min string) bool {
	want, ok := levelRank[strings.ToLower(strings.TrimSpace(min))]
	if !ok {
		return true
	}
	have, ok := levelRank[e.Level]
	return !ok || have >= want
}

// String renders the entry as "15:04:05 INFO  [stage] message key=value".
func (e Entry) String() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Stage != "" {
		fmt.Fprintf(&b, "[%s] ", e.Stage)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(e.Fields[key]))
	}
	return b.String()
}

// Format renders a raw log line, passing non-JSON lines through unchanged.
func Format(line string) string {
	entry, ok := Parse(line)
	if !ok {
		return line
	}
	return entry.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		if v == "" || strings.ContainsAny(v, " \t\"=") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
