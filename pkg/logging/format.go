package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	consoleTimeLayout = "15:04:05"
	fileTimeLayout    = "2006-01-02 15:04:05"
)

var bufferPool = buffer.NewPool()

var levelColors = map[Level]color.Attribute{
	LevelError:   color.FgRed,
	LevelWarn:    color.FgYellow,
	LevelInfo:    color.FgGreen,
	LevelHTTP:    color.FgMagenta,
	LevelVerbose: color.FgWhite,
	LevelDebug:   color.FgCyan,
	LevelSilly:   color.FgHiBlack,
}

// recordEncoder renders one record as
//
//	<time> [<level>]: <message>
//	<stack, when present>
//	<indented JSON meta, when non-empty>
//
// Each record is a single buffer so every transport receives it in one Write.
type recordEncoder struct {
	*zapcore.MapObjectEncoder
	format Format
	colors map[Level]*color.Color
}

func newRecordEncoder(spec TransportSpec) *recordEncoder {
	enc := &recordEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		format:           spec.Format,
	}

	if spec.Format == FormatConsole && spec.Colorize {
		enc.colors = make(map[Level]*color.Color, len(levelColors))
		for lvl, attr := range levelColors {
			c := color.New(attr)
			c.EnableColor()
			enc.colors[lvl] = c
		}
	}

	return enc
}

func (e *recordEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &recordEncoder{
		MapObjectEncoder: clone,
		format:           e.format,
		colors:           e.colors,
	}
}

func (e *recordEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	meta := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		meta.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(meta)
	}

	buf := bufferPool.Get()
	buf.AppendString(e.header(ent))

	if ent.Stack != "" {
		buf.AppendByte('\n')
		buf.AppendString(strings.TrimRight(ent.Stack, "\n"))
	}

	if len(meta.Fields) == 0 {
		buf.AppendByte('\n')
		return buf, nil
	}

	buf.AppendByte('\n')
	appendMeta(buf, meta.Fields)
	return buf, nil
}

func (e *recordEncoder) header(ent zapcore.Entry) string {
	lvl := levelFromZap(ent.Level)

	if e.format == FormatFile {
		return fmt.Sprintf("%s [%s]: %s", formatFileTime(ent.Time), strings.ToUpper(lvl.String()), ent.Message)
	}

	line := fmt.Sprintf("%s [%s]: %s", ent.Time.Format(consoleTimeLayout), lvl.String(), ent.Message)
	if c, ok := e.colors[lvl]; ok {
		return c.Sprint(line)
	}
	return line
}

// formatFileTime renders YYYY-MM-DD HH:mm:ss:ms. Go layouts only accept
// fractional seconds after a dot, so milliseconds are appended by hand.
func formatFileTime(t time.Time) string {
	return fmt.Sprintf("%s:%03d", t.Format(fileTimeLayout), t.Nanosecond()/int(time.Millisecond))
}

// appendMeta writes fields as indented JSON followed by a newline.
func appendMeta(buf *buffer.Buffer, fields map[string]any) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fields); err != nil {
		buf.AppendString(fmt.Sprintf("%v", fields))
		buf.AppendByte('\n')
	}
}
