package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type record struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  Fields
	Err     error
}

// Formatter renders a record into an output line.
type Formatter interface {
	Format(r record) ([]byte, error)
}

type consoleFormatter struct{}

func (f *consoleFormatter) Format(r record) ([]byte, error) {
	var b strings.Builder

	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(r.Message)

	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
		}
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

type jsonFormatter struct{}

func (f *jsonFormatter) Format(r record) ([]byte, error) {
	payload := map[string]interface{}{
		"timestamp": r.Time.UTC().Format(time.RFC3339Nano),
		"level":     r.Level.String(),
		"message":   r.Message,
	}
	for k, v := range r.Fields {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
