package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/oscap-tools/hardenplan/internal/observability"
	"github.com/oscap-tools/hardenplan/internal/version"
)

const SchemaVersion = "1.0"

// eventNamespace prefixes command events so collectors can route them
const eventNamespace = "hardenplan."

type jsonlLogger struct {
	mu       sync.Mutex
	writer   io.Writer
	closer   io.Closer
	minLevel int
	// op id of the running command, used when no context is at hand
	opID string
}

type logEntry struct {
	Timestamp     string         `json:"ts"`
	Level         string         `json:"level"`
	Event         string         `json:"event,omitempty"`
	Component     string         `json:"component"`
	OpID          string         `json:"op_id"`
	SchemaVersion string         `json:"schema_version"`
	Version       string         `json:"hardenplan_version,omitempty"`
	GoVersion     string         `json:"go_version,omitempty"`
	Message       string         `json:"msg,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

func (j *jsonlLogger) entry(level, component, opID string) logEntry {
	if opID == "" {
		opID = j.opID
	}
	return logEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level,
		Component:     component,
		OpID:          opID,
		SchemaVersion: SchemaVersion,
		Version:       version.BuildVersion(),
		GoVersion:     runtime.Version(),
	}
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}
	e := j.entry(level, component, "")
	e.Message = msg
	e.Fields = fieldMap(fields)
	j.write(e)
}

func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelInfo) < j.minLevel {
		return
	}
	e := j.entry(LevelInfo, "cli", observability.OpID(ctx))
	e.Event = eventNamespace + event
	e.Fields = fields
	j.write(e)
}

func (j *jsonlLogger) write(e logEntry) {
	data, err := json.Marshal(e)
	if err != nil {
		// unmarshalable field values; keep the line, lose the fields
		e.Fields = map[string]any{"fields_error": err.Error()}
		if data, err = json.Marshal(e); err != nil {
			return
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(append(data, '\n'))
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// fieldMap pairs up key/value arguments. Non-string keys are dropped and a
// dangling key gets a nil value.
func fieldMap(fields []any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, (len(fields)+1)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if i+1 < len(fields) {
			out[key] = fields[i+1]
		} else {
			out[key] = nil
		}
	}
	return out
}
