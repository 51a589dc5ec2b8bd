package logger

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const badKey = "!BADKEY"

type console struct {
	out   func(msg string)
	err   func(msg string)
	json  bool
	level Level
}

var _ Logger = &console{}

// ConsoleOption configures the console logger.
type ConsoleOption func(c *console)

// WithJSON renders the key/value payload as a JSON object instead of
// key=value pairs.
func WithJSON() ConsoleOption {
	return func(c *console) {
		c.json = true
	}
}

// WithMinLevel drops lines below level.
func WithMinLevel(level Level) ConsoleOption {
	return func(c *console) {
		c.level = level
	}
}

// NewConsole returns the fallback logger used when none is configured.
// Trace, debug and info lines go to stdout; warn, error and fatal lines go to
// stderr. Every line is prefixed with the bracketed level name.
func NewConsole(opts ...ConsoleOption) Logger {
	c := &console{
		out: func(msg string) {
			fmt.Fprintln(os.Stdout, msg)
		},
		err: func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
		level: LevelTrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *console) Trace(msg string, args ...any) { c.print(LevelTrace, msg, args) }
func (c *console) Debug(msg string, args ...any) { c.print(LevelDebug, msg, args) }
func (c *console) Info(msg string, args ...any)  { c.print(LevelInfo, msg, args) }
func (c *console) Warn(msg string, args ...any)  { c.print(LevelWarn, msg, args) }
func (c *console) Error(msg string, args ...any) { c.print(LevelError, msg, args) }
func (c *console) Fatal(msg string, args ...any) { c.print(LevelFatal, msg, args) }

func (c *console) print(level Level, msg string, args []any) {
	if level < c.level {
		return
	}
	line := "[" + level.String() + "] " + msg
	if len(args) > 0 {
		if c.json {
			line += " " + c.renderJSON(args)
		} else {
			line += " " + renderPairs(args)
		}
	}
	if level >= LevelWarn {
		c.err(line)
		return
	}
	c.out(line)
}

func renderPairs(args []any) string {
	var b strings.Builder
	forEachPair(args, func(key string, value any) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", key, value)
	})
	return b.String()
}

func (c *console) renderJSON(args []any) string {
	fields := make(map[string]any, len(args)/2+1)
	forEachPair(args, func(key string, value any) {
		switch v := value.(type) {
		case error:
			fields[key] = v.Error()
		case fmt.Stringer:
			fields[key] = v.String()
		default:
			fields[key] = v
		}
	})
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(fields)
	if err != nil {
		return renderPairs(args)
	}
	return string(out)
}

// forEachPair walks slog style key/value arguments. A trailing value without
// a key is reported under "!BADKEY", as log/slog does.
func forEachPair(args []any, fn func(key string, value any)) {
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			fn(badKey, args[i])
			continue
		}
		fn(key, args[i+1])
		i++
	}
}
