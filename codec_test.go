package formsaver

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		value   any
		meta    Meta
		version Version
	}{
		{
			name:    "numeric version",
			value:   map[string]any{"email": "a@b.c", "tags": []any{"x", "y"}},
			meta:    Meta{RootPath: {Dirty: true}, "email": {Dirty: true, Touched: true}},
			version: NumberVersion(2),
		},
		{
			name:    "string version",
			value:   "plain",
			meta:    Meta{RootPath: {}},
			version: StringVersion("2024-01"),
		},
		{
			name:  "unset version",
			value: []any{1.0, 2.0},
			meta:  Meta{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := Encode(tc.value, tc.meta, tc.version)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			payload, err := Decode(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload.Version != tc.version {
				t.Fatalf("version: want %v got %v", tc.version, payload.Version)
			}
			if !reflect.DeepEqual(payload.Data, tc.value) {
				t.Fatalf("data: want %#v got %#v", tc.value, payload.Data)
			}
			if !reflect.DeepEqual(payload.Meta, tc.meta) {
				t.Fatalf("meta: want %#v got %#v", tc.meta, payload.Meta)
			}
		})
	}
}

func TestEncodeOmitsUnsetVersion(t *testing.T) {
	raw, err := Encode(1, nil, Version{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if raw != `{"data":1,"meta":{}}` {
		t.Fatalf("unexpected record %s", raw)
	}
	raw, _ = Encode(1, nil, NumberVersion(3))
	if !strings.HasPrefix(raw, `{"v":3,`) {
		t.Fatalf("expected version first, got %s", raw)
	}
}

func TestEncodeRejectsUnserializableValue(t *testing.T) {
	_, err := Encode(map[string]any{"fn": func() {}}, nil, Version{})
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := map[string]string{
		"empty":           "   ",
		"not json":        "{oops",
		"array top level": `[1,2]`,
		"bad version":     `{"v":true,"data":1,"meta":{}}`,
		"bad meta":        `{"data":1,"meta":{"email":{"dirty":"yes"}}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) || decodeErr.Reason == "" {
				t.Fatalf("expected *DecodeError with reason, got %#v", err)
			}
		})
	}
}

func TestDecodeToleratesMissingMeta(t *testing.T) {
	payload, err := Decode(`{"v":1,"data":{"a":1}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Meta != nil {
		t.Fatalf("expected nil meta, got %v", payload.Meta)
	}
}
