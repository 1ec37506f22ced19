package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry, so `journalctl -t restreamer` works.
const SyslogIdentifier = "restreamer"

// JournalHandler writes records to the systemd journal. Attributes become
// journal fields: "session" is SESSION, group "exit" attribute "code" is
// EXIT_CODE, so `journalctl -t restreamer SESSION=<id>` follows one encoder run.
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewJournalHandler creates a journal handler filtering at level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	if err := journal.Send(r.Message, journalPriority(r.Level), h.fields(r)); err != nil {
		return fmt.Errorf("journal send: %w", err)
	}
	return nil
}

// fields collects the journal fields for r. MESSAGE and PRIORITY are set by
// journal.Send.
func (h *JournalHandler) fields(r slog.Record) map[string]string {
	fields := map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier}
	for _, a := range h.attrs {
		addJournalField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addJournalField(fields, h.prefix, a)
		return true
	})
	return fields
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(make([]slog.Attr, 0, len(h.attrs)+len(attrs)), h.attrs...)
	// Stored keys carry the group prefix in effect when they were added.
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "_"
	return &clone
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addJournalField stores a under its journal field name. Group values
// flatten into KEY_SUBKEY fields.
func addJournalField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub += a.Key + "_"
		}
		for _, ga := range a.Value.Group() {
			addJournalField(fields, sub, ga)
		}
		return
	}

	name := journalFieldName(prefix + a.Key)
	if name == "" {
		return
	}
	switch a.Value.Kind() {
	case slog.KindInt64:
		fields[name] = strconv.FormatInt(a.Value.Int64(), 10)
	case slog.KindUint64:
		fields[name] = strconv.FormatUint(a.Value.Uint64(), 10)
	case slog.KindFloat64:
		fields[name] = strconv.FormatFloat(a.Value.Float64(), 'f', -1, 64)
	case slog.KindBool:
		fields[name] = strconv.FormatBool(a.Value.Bool())
	case slog.KindTime:
		fields[name] = a.Value.Time().Format(time.RFC3339Nano)
	default:
		fields[name] = a.Value.String()
	}
}

// journalFieldName maps an attribute key to a valid journal field name:
// upper case letters, digits and underscores, not starting with an
// underscore or digit (those are reserved by journald).
func journalFieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	name = strings.TrimLeft(name, "_0123456789")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// IsJournalAvailable reports whether journald is listening.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
