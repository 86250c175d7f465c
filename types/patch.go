package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// Patch is a sparse update request for one content variant.
// A nil field means "leave unchanged".
type Patch interface {
	// Empty reports whether the patch requests no field at all.
	Empty() bool

	// Fields lists the names of the requested fields.
	Fields() []string

	// Validate rejects requested values that can never be stored.
	Validate() error
}

// Diffable is a payload that can reduce a requested patch to the fields that
// actually differ from its current state, and apply such a patch.
type Diffable[S any, P Patch] interface {
	Payload

	// Diff drops every requested field whose value equals the current one.
	Diff(P) P

	// Apply returns a copy of the payload with the patch applied.
	Apply(P) S
}

var errEmptyBody = errors.New("text body cannot be empty")

// TextPatch updates a Text.
type TextPatch struct {
	Body *string `json:"body,omitempty"`
	Pos  *Coords `json:"pos,omitempty"`
}

// ErrAmbiguousText is returned when a text update names both "body" and its
// alias "text".
var ErrAmbiguousText = errors.New("use either body or text")

// UnmarshalJSON accepts "text" as an alias of "body".
func (p *TextPatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Body *string `json:"body"`
		Text *string `json:"text"`
		Pos  *Coords `json:"pos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Body != nil && raw.Text != nil {
		return ErrAmbiguousText
	}
	p.Body = raw.Body
	if p.Body == nil {
		p.Body = raw.Text
	}
	p.Pos = raw.Pos
	return nil
}

func (p TextPatch) Empty() bool { return p.Body == nil && p.Pos == nil }

func (p TextPatch) Fields() []string {
	var fields []string
	if p.Body != nil {
		fields = append(fields, "body")
	}
	if p.Pos != nil {
		fields = append(fields, "pos")
	}
	return fields
}

func (p TextPatch) Validate() error {
	if p.Body != nil && strings.TrimSpace(*p.Body) == "" {
		return errEmptyBody
	}
	return nil
}

func (t Text) Diff(p TextPatch) TextPatch {
	var d TextPatch
	if p.Body != nil && *p.Body != t.Body {
		d.Body = p.Body
	}
	if p.Pos != nil && *p.Pos != t.Pos {
		d.Pos = p.Pos
	}
	return d
}

func (t Text) Apply(p TextPatch) Text {
	if p.Body != nil {
		t.Body = *p.Body
	}
	if p.Pos != nil {
		t.Pos = *p.Pos
	}
	return t
}

// PathPatch updates a Path. The origin position and encoding version are
// fixed at creation.
type PathPatch struct {
	Path *string `json:"path,omitempty"`
	Pos  *Coords `json:"pos,omitempty"`
}

func (p PathPatch) Empty() bool { return p.Path == nil && p.Pos == nil }

func (p PathPatch) Fields() []string {
	var fields []string
	if p.Path != nil {
		fields = append(fields, "path")
	}
	if p.Pos != nil {
		fields = append(fields, "pos")
	}
	return fields
}

func (p PathPatch) Validate() error {
	if p.Path != nil && strings.TrimSpace(*p.Path) == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

func (p Path) Diff(patch PathPatch) PathPatch {
	var d PathPatch
	if patch.Path != nil && *patch.Path != p.Path {
		d.Path = patch.Path
	}
	if patch.Pos != nil && *patch.Pos != p.Pos {
		d.Pos = patch.Pos
	}
	return d
}

func (p Path) Apply(patch PathPatch) Path {
	if patch.Path != nil {
		p.Path = *patch.Path
	}
	if patch.Pos != nil {
		p.Pos = *patch.Pos
	}
	return p
}

// ImagePatch updates an Image. The URL is fixed at creation.
type ImagePatch struct {
	Pos   *Coords `json:"pos,omitempty"`
	Scale *Coords `json:"scale,omitempty"`
}

func (p ImagePatch) Empty() bool { return p.Pos == nil && p.Scale == nil }

func (p ImagePatch) Fields() []string {
	var fields []string
	if p.Pos != nil {
		fields = append(fields, "pos")
	}
	if p.Scale != nil {
		fields = append(fields, "scale")
	}
	return fields
}

func (p ImagePatch) Validate() error { return nil }

func (i Image) Diff(p ImagePatch) ImagePatch {
	var d ImagePatch
	if p.Pos != nil && *p.Pos != i.Pos {
		d.Pos = p.Pos
	}
	if p.Scale != nil && *p.Scale != i.Scale {
		d.Scale = p.Scale
	}
	return d
}

func (i Image) Apply(p ImagePatch) Image {
	if p.Pos != nil {
		i.Pos = *p.Pos
	}
	if p.Scale != nil {
		i.Scale = *p.Scale
	}
	return i
}
