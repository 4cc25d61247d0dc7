package logging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oscap-tools/hardenplan/internal/observability"
)

// textLogger writes one human readable key=value line per entry
type textLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	opID     string
	mu       sync.Mutex
}

func (t *textLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < t.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s: %s", time.Now().Format(time.RFC3339), strings.ToUpper(level), component, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%q", fields[i], fmt.Sprint(fields[i+1]))
	}
	if len(fields)%2 == 1 {
		fmt.Fprintf(&b, " %v=", fields[len(fields)-1])
	}
	t.writeLine(b.String())
}

func (t *textLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelInfo) < t.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s event %s", time.Now().Format(time.RFC3339), "INFO", event)
	id := observability.OpID(ctx)
	if id == "" {
		id = t.opID
	}
	if id != "" {
		fmt.Fprintf(&b, " op_id=%s", id)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	t.writeLine(b.String())
}

func (t *textLogger) writeLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.writer, line+"\n") // best effort
}

func (t *textLogger) Debug(component, msg string, fields ...any) {
	t.log(LevelDebug, component, msg, fields...)
}

func (t *textLogger) Info(component, msg string, fields ...any) {
	t.log(LevelInfo, component, msg, fields...)
}

func (t *textLogger) Warn(component, msg string, fields ...any) {
	t.log(LevelWarn, component, msg, fields...)
}

func (t *textLogger) Error(component, msg string, fields ...any) {
	t.log(LevelError, component, msg, fields...)
}

func (t *textLogger) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
