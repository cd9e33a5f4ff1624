package log

import (
	"fmt"
	"log/slog"
	"time"
)

// Entry is a log record flattened for JSON consumers.
type Entry struct {
	Time  time.Time         `json:"time"`
	Level string            `json:"level"`
	Msg   string            `json:"msg"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

func NewEntry(rec slog.Record, attrs []slog.Attr) Entry {
	entry := Entry{
		Time:  rec.Time.UTC(),
		Level: rec.Level.String(),
		Msg:   rec.Message,
	}
	if n := rec.NumAttrs() + len(attrs); n > 0 {
		entry.Attrs = make(map[string]string, n)
		entry.addAttrs(attrs)
		rec.Attrs(entry.addAttr)
	}
	return entry
}

func (s *Entry) addAttrs(attrs []slog.Attr) {
	for _, attr := range attrs {
		s.addAttr(attr)
	}
}

func (s *Entry) addAttr(attr slog.Attr) bool {
	val := attr.Value.Resolve().Any()
	if attrs, ok := val.([]slog.Attr); ok {
		s.addAttrs(attrs)
	} else if attr.Key == prefixKey {
		if prefix, ok := s.Attrs["prefix"]; ok {
			s.Attrs["prefix"] = prefix + "." + fmt.Sprint(val)
		} else {
			s.Attrs["prefix"] = fmt.Sprint(val)
		}
	} else {
		s.Attrs[attr.Key] = fmt.Sprint(val)
	}
	return true
}
