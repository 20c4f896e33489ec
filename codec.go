package formsaver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-formsaver/internal/envelope"
)

// MetaEntry holds the interaction flags of one control.
type MetaEntry struct {
	Dirty   bool `json:"dirty"`
	Touched bool `json:"touched"`
}

// Meta maps control paths to their interaction flags. The root control is
// stored under RootPath; descendants use dot-joined names ("email", "tags.0").
type Meta map[string]MetaEntry

// Payload is the decoded form of a persisted record.
type Payload struct {
	Version Version
	Data    any
	Meta    Meta
}

type wireEnvelope struct {
	V    *Version `json:"v,omitempty"`
	Data any      `json:"data"`
	Meta Meta     `json:"meta"`
}

// Encode serializes value, meta and version into the persisted record format.
// The "v" member is omitted when version is unset.
func Encode(value any, meta Meta, version Version) (string, error) {
	wire := wireEnvelope{Data: value, Meta: meta}
	if !version.IsZero() {
		wire.V = &version
	}
	if wire.Meta == nil {
		wire.Meta = Meta{}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return string(data), nil
}

// Decode parses a persisted record. Malformed text, a non-object top level or
// a document that violates the envelope schema yields a *DecodeError.
func Decode(raw string) (Payload, error) {
	if strings.TrimSpace(raw) == "" {
		return Payload{}, &DecodeError{Reason: "empty entry"}
	}
	if err := envelope.Validate(raw); err != nil {
		return Payload{}, &DecodeError{Reason: "invalid envelope", Err: err}
	}
	var wire wireEnvelope
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Payload{}, &DecodeError{Reason: "invalid json", Err: err}
	}
	payload := Payload{Data: wire.Data, Meta: wire.Meta}
	if wire.V != nil {
		payload.Version = *wire.V
	}
	return payload, nil
}
