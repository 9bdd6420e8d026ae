package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a point in time that decodes from the representations older
// order documents carry: a {seconds, nanoseconds} object, raw epoch seconds,
// or a date/time string. Anything else decodes to the zero value.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Millis returns milliseconds since the epoch, or now when t is unset.
func (t Timestamp) Millis(now time.Time) int64 {
	if t.IsZero() {
		return now.UnixMilli()
	}
	return t.UnixMilli()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	t.Time = parseTime(raw)
	return nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case []byte:
		t.Time = parseTime(string(v))
	case string:
		t.Time = parseTime(v)
	case int64:
		t.Time = parseTime(v)
	default:
		return fmt.Errorf("unsupported timestamp source %T", src)
	}
	return nil
}

func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Time.UTC(), nil
}

type millisAccessor interface {
	ToMillis() int64
}

// ToMillis converts any supported timestamp representation to milliseconds
// since the epoch, falling back to now when v cannot be interpreted.
func ToMillis(v any, now time.Time) int64 {
	if m, ok := v.(millisAccessor); ok {
		return m.ToMillis()
	}
	t := parseTime(v)
	if t.IsZero() {
		return now.UnixMilli()
	}
	return t.UnixMilli()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

func parseTime(v any) time.Time {
	switch x := v.(type) {
	case nil:
		return time.Time{}
	case millisAccessor:
		return time.UnixMilli(x.ToMillis()).UTC()
	case Timestamp:
		return x.Time
	case *Timestamp:
		if x == nil {
			return time.Time{}
		}
		return x.Time
	case time.Time:
		return x
	case *time.Time:
		if x == nil {
			return time.Time{}
		}
		return *x
	case int:
		return fromEpochSeconds(float64(x), 0)
	case int64:
		return fromEpochSeconds(float64(x), 0)
	case float64:
		return fromEpochSeconds(x, 0)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}
		}
		return fromEpochSeconds(f, 0)
	case string:
		return parseTimeString(x)
	case map[string]any:
		return parseStructured(x)
	}
	return time.Time{}
}

func parseTimeString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochSeconds(f, 0)
	}
	return time.Time{}
}

func parseStructured(m map[string]any) time.Time {
	seconds, ok := number(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}
	}
	nanos, _ := number(m, "nanoseconds", "_nanoseconds")
	return fromEpochSeconds(seconds, int64(nanos))
}

func number(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}

// fromEpochSeconds treats a zero instant as unset.
func fromEpochSeconds(seconds float64, nanos int64) time.Time {
	if seconds == 0 && nanos == 0 {
		return time.Time{}
	}
	whole := int64(seconds)
	frac := int64((seconds - float64(whole)) * float64(time.Second))
	return time.Unix(whole, frac+nanos).UTC()
}
