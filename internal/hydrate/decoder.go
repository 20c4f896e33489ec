// Package hydrate turns configuration documents (YAML, JSON or JSONC) into
// typed structs, with hooks that run before and after decoding.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document formats understood by Parse.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Stages reported by Error.
const (
	StageParse    = "parse"
	StagePreHook  = "pre-hook"
	StageDecode   = "decode"
	StagePostHook = "post-hook"
)

// Context identifies the document being decoded.
type Context struct {
	Source string
	Format string
}

func (c Context) name() string {
	if c.Source == "" {
		return "<inline>"
	}
	return c.Source
}

// FormatFromPath picks FormatYAML for .yaml and .yml files and FormatJSON
// otherwise.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Error reports the document and stage a failure happened in.
type Error struct {
	Source string
	Stage  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hydrate: %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(ctx Context, stage string, err error) *Error {
	return &Error{Source: ctx.name(), Stage: stage, Err: err}
}

// Parse reads raw as ctx.Format. JSON may carry comments and trailing commas.
// An empty input is an empty document.
func Parse(ctx Context, raw []byte) (map[string]any, error) {
	var document map[string]any
	switch strings.ToLower(ctx.Format) {
	case FormatYAML, "yml":
		if err := yaml.Unmarshal(raw, &document); err != nil {
			return nil, fail(ctx, StageParse, err)
		}
	case FormatJSON, "jsonc", "":
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(jsonc.ToJSON(raw), &document); err != nil {
				return nil, fail(ctx, StageParse, err)
			}
		}
	default:
		return nil, fail(ctx, StageParse, fmt.Errorf("unsupported format %q", ctx.Format))
	}
	if document == nil {
		document = map[string]any{}
	}
	return document, nil
}

// PreHook rewrites the document before it is decoded.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts documents into T.
type Decoder[T any] struct {
	preHooks      []PreHook
	postHooks     []PostHook[T]
	strictMembers bool
}

// WithPreHook runs hook before decoding. Hooks run in registration order.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithPostHook runs hook after decoding. Hooks run in registration order.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithDisallowUnknownFields rejects keys T does not declare, at any depth.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strictMembers = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeBytes parses raw with Parse and decodes the result.
func (d *Decoder[T]) DecodeBytes(ctx Context, raw []byte) (T, error) {
	document, err := Parse(ctx, raw)
	if err != nil {
		var zero T
		return zero, err
	}
	return d.Decode(ctx, document)
}

// Decode converts document into T. The input map is not modified.
func (d *Decoder[T]) Decode(ctx Context, document map[string]any) (T, error) {
	var zero T
	if document == nil {
		return zero, fail(ctx, StageDecode, fmt.Errorf("document is nil"))
	}

	// A JSON round trip gives hooks a private copy and normalises YAML
	// scalars to their JSON forms.
	buffer, err := json.Marshal(document)
	if err != nil {
		return zero, fail(ctx, StageDecode, err)
	}
	current := map[string]any{}
	if err := json.Unmarshal(buffer, &current); err != nil {
		return zero, fail(ctx, StageDecode, err)
	}

	for _, hook := range d.preHooks {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fail(ctx, StagePreHook, err)
		}
		if next != nil {
			current = next
		}
	}

	if buffer, err = json.Marshal(current); err != nil {
		return zero, fail(ctx, StageDecode, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.strictMembers {
		decoder.DisallowUnknownFields()
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fail(ctx, StageDecode, err)
	}

	for _, hook := range d.postHooks {
		if err := hook(ctx, &result); err != nil {
			return zero, fail(ctx, StagePostHook, err)
		}
	}
	return result, nil
}
