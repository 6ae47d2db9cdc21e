package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Scalar holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Scalar is a single cell value. The zero value is Null.
type Scalar struct {
	kind Kind
	num  float64
	text string
	b    bool
	t    time.Time
}

func Null() Scalar               { return Scalar{} }
func Number(v float64) Scalar    { return Scalar{kind: KindNumber, num: v} }
func Text(v string) Scalar       { return Scalar{kind: KindText, text: v} }
func Bool(v bool) Scalar         { return Scalar{kind: KindBool, b: v} }
func Date(v time.Time) Scalar    { return Scalar{kind: KindDate, t: v} }
func (s Scalar) Kind() Kind      { return s.kind }
func (s Scalar) IsNull() bool    { return s.kind == KindNull }
func (s Scalar) Float() float64  { return s.num }
func (s Scalar) Str() string     { return s.text }
func (s Scalar) Truth() bool     { return s.b }
func (s Scalar) Time() time.Time { return s.t }

// IsBlank reports whether the value counts as missing: null or text that is
// empty after trimming.
func (s Scalar) IsBlank() bool {
	switch s.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(s.text) == ""
	default:
		return false
	}
}

// String renders the value the way it is shown to readers and used as a
// grouping key for frequency tables.
func (s Scalar) String() string {
	switch s.kind {
	case KindNumber:
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	case KindText:
		return s.text
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindDate:
		return s.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// key distinguishes values of different kinds with equal display strings,
// so 1 and "1" count as two distinct values.
func (s Scalar) key() string {
	return fmt.Sprintf("%d:%s", s.kind, s.String())
}

// Equal compares kind and value.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindNumber:
		return s.num == o.num
	case KindText:
		return s.text == o.text
	case KindBool:
		return s.b == o.b
	case KindDate:
		return s.t.Equal(o.t)
	default:
		return true
	}
}

// AsNumber coerces the value to a float. Text must parse fully, booleans map
// to 1/0, everything else fails.
func (s Scalar) AsNumber() (float64, bool) {
	switch s.kind {
	case KindNumber:
		return s.num, true
	case KindText:
		return ParseNumber(s.text)
	case KindBool:
		if s.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsTime coerces the value to a time using the date lexicon.
func (s Scalar) AsTime() (time.Time, bool) {
	switch s.kind {
	case KindDate:
		return s.t, true
	case KindText:
		return ParseDate(s.text)
	default:
		return time.Time{}, false
	}
}

// Interface returns the value as a plain Go value for templates and logging.
func (s Scalar) Interface() interface{} {
	switch s.kind {
	case KindNumber:
		return s.num
	case KindText:
		return s.text
	case KindBool:
		return s.b
	case KindDate:
		return s.t
	default:
		return nil
	}
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindNumber:
		return json.Marshal(s.num)
	case KindText:
		return json.Marshal(s.text)
	case KindBool:
		return json.Marshal(s.b)
	case KindDate:
		return json.Marshal(s.t.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Dates come back as Text; the Analyzer
// recognises them again on inference.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Text(v)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Bool(v)
	case '{', '[':
		*s = Text(string(data))
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Number(v)
	}
	return nil
}
