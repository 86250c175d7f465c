package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates content variants within the single content collection.
type Kind string

const (
	KindText  Kind = "text"
	KindPath  Kind = "path"
	KindImage Kind = "image"
)

// DefaultPathVersion is the path-encoding version assigned to new paths.
const DefaultPathVersion = "0.2"

// Valid reports whether k is a known content kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindPath, KindImage:
		return true
	}
	return false
}

// Coords is a point (or a scale factor pair) on the canvas.
// Two Coords are equal only if both axes are exactly equal.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ErrPartialCoords is returned when a coordinate pair is missing an axis.
var ErrPartialCoords = errors.New("coordinates need both x and y")

// UnmarshalJSON requires both axes. A missing axis would otherwise decode
// as zero and move the item.
func (c *Coords) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.X == nil || raw.Y == nil {
		return ErrPartialCoords
	}
	c.X, c.Y = *raw.X, *raw.Y
	return nil
}

// EditInfo is the edit metadata carried by every content item.
type EditInfo struct {
	// CreatedAt is set by the server when the item is accepted.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Edited becomes true after the first real change.
	Edited bool `json:"edited" db:"edited"`

	// LastEditAt is the time of the most recent real change.
	LastEditAt *time.Time `json:"lastEditAt,omitempty" db:"last_edit_at"`

	// LastEditBy is the account that made the most recent real change.
	LastEditBy string `json:"lastEditBy,omitempty" db:"last_edit_by"`
}

// Payload is the variant-specific part of a content item.
// The set of implementations is closed: Text, Path and Image.
type Payload interface {
	Kind() Kind
	Validate() error
	payload()
}

// Content is a single item placed on the whiteboard.
type Content struct {
	// ID is the 24-hex identifier of the item.
	ID string

	// AuthorID references the creating account. It is not a foreign key;
	// deleting the account leaves the item in place.
	AuthorID string

	EditInfo EditInfo

	// Revision increases by one with every applied update.
	Revision int64

	Payload Payload
}

// Kind returns the discriminator of the item's payload.
func (c Content) Kind() Kind {
	if c.Payload == nil {
		return ""
	}
	return c.Payload.Kind()
}

// Text is a text note.
type Text struct {
	Body string `json:"body"`
	Pos  Coords `json:"pos"`
}

func (Text) Kind() Kind { return KindText }
func (Text) payload()   {}

func (t Text) Validate() error {
	if strings.TrimSpace(t.Body) == "" {
		return errors.New("no text body")
	}
	return nil
}

// Path is a freehand drawing stored in a vector path encoding.
type Path struct {
	Path      string `json:"path"`
	Pos       Coords `json:"pos"`
	OriginPos Coords `json:"originPos"`
	Version   string `json:"version"`
}

func (Path) Kind() Kind { return KindPath }
func (Path) payload()   {}

func (p Path) Validate() error {
	if strings.TrimSpace(p.Path) == "" {
		return errors.New("no path")
	}
	return nil
}

// Image is a remote image placed and scaled on the canvas.
type Image struct {
	URL   string `json:"url"`
	Pos   Coords `json:"pos"`
	Scale Coords `json:"scale"`
}

func (Image) Kind() Kind { return KindImage }
func (Image) payload()   {}

func (i Image) Validate() error {
	if strings.TrimSpace(i.URL) == "" {
		return errors.New("no image url")
	}
	return nil
}

// DecodePayload decodes the stored JSON form of a payload of the given kind.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindText:
		var t Text
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindPath:
		var p Path
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.Version == "" {
			p.Version = DefaultPathVersion
		}
		return p, nil
	case KindImage:
		var i Image
		if err := json.Unmarshal(data, &i); err != nil {
			return nil, err
		}
		return i, nil
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

// PublicContent is the projection of a content item returned to clients.
// The author is rendered as a PublicUser instead of a raw account id.
type PublicContent struct {
	ID       string     `json:"id"`
	Kind     Kind       `json:"kind"`
	Author   PublicUser `json:"author"`
	EditInfo EditInfo   `json:"editInfo"`
	Revision int64      `json:"revision"`

	Body      *string `json:"body,omitempty"`
	Path      *string `json:"path,omitempty"`
	URL       *string `json:"url,omitempty"`
	Pos       *Coords `json:"pos,omitempty"`
	OriginPos *Coords `json:"originPos,omitempty"`
	Scale     *Coords `json:"scale,omitempty"`
	Version   string  `json:"version,omitempty"`
}

// Project builds the public projection of c with the given author.
func Project(c Content, author PublicUser) PublicContent {
	pc := PublicContent{
		ID:       c.ID,
		Kind:     c.Kind(),
		Author:   author,
		EditInfo: c.EditInfo,
		Revision: c.Revision,
	}
	switch p := c.Payload.(type) {
	case Text:
		pc.Body = &p.Body
		pc.Pos = &p.Pos
	case Path:
		pc.Path = &p.Path
		pc.Pos = &p.Pos
		pc.OriginPos = &p.OriginPos
		pc.Version = p.Version
	case Image:
		pc.URL = &p.URL
		pc.Pos = &p.Pos
		pc.Scale = &p.Scale
	}
	return pc
}
