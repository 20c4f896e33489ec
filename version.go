package formsaver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type versionKind uint8

const (
	versionUnset versionKind = iota
	versionNumber
	versionString
)

// Version identifies a payload schema revision. It is either a number or a
// string; the zero value means "unset". Versions compare with ==, and a
// number never equals a string (1 != "1").
type Version struct {
	kind versionKind
	num  float64
	str  string
}

// NumberVersion returns a numeric version.
func NumberVersion(n float64) Version {
	return Version{kind: versionNumber, num: n}
}

// StringVersion returns a string version.
func StringVersion(s string) Version {
	return Version{kind: versionString, str: s}
}

// IsZero reports whether v is unset.
func (v Version) IsZero() bool {
	return v.kind == versionUnset
}

// IsNumber reports whether v holds a number.
func (v Version) IsNumber() bool { return v.kind == versionNumber }

// IsString reports whether v holds a string.
func (v Version) IsString() bool { return v.kind == versionString }

// Number returns the numeric value and whether v is numeric.
func (v Version) Number() (float64, bool) {
	return v.num, v.kind == versionNumber
}

// Value returns the version as float64, string or nil.
func (v Version) Value() any {
	switch v.kind {
	case versionNumber:
		return v.num
	case versionString:
		return v.str
	default:
		return nil
	}
}

func (v Version) String() string {
	switch v.kind {
	case versionNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case versionString:
		return strconv.Quote(v.str)
	default:
		return "<unset>"
	}
}

// orZero returns v, or NumberVersion(0) when v is unset.
func (v Version) orZero() Version {
	if v.IsZero() {
		return NumberVersion(0)
	}
	return v
}

// ParseVersion converts a decoded JSON or YAML scalar into a Version.
func ParseVersion(value any) (Version, error) {
	switch typed := value.(type) {
	case nil:
		return Version{}, nil
	case Version:
		return typed, nil
	case string:
		return StringVersion(typed), nil
	case float64:
		return NumberVersion(typed), nil
	case float32:
		return NumberVersion(float64(typed)), nil
	case int:
		return NumberVersion(float64(typed)), nil
	case int64:
		return NumberVersion(float64(typed)), nil
	case uint64:
		return NumberVersion(float64(typed)), nil
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return Version{}, fmt.Errorf("formsaver: version %q: %w", typed, err)
		}
		return NumberVersion(f), nil
	default:
		return Version{}, fmt.Errorf("formsaver: version must be a number or string, got %T", value)
	}
}

func (v Version) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case versionNumber:
		return json.Marshal(v.num)
	case versionString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Version{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVersion(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
