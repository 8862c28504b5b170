// Package entity decodes the shared-space entity stream into a closed set of kinds.
package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// ErrMalformed is returned for records that are not a JSON entity object.
var ErrMalformed = errors.New("malformed entity")

// ID identifies an entity for the lifetime of the remote world.
type ID int64

// Kind represents the type of entity.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindWall
	KindNote
	KindDesk
	KindLink
	KindZoomLink
	KindAudioBlock
	KindCalendar
	KindAudioRoom
	KindAvatar
	KindBot
)

// Wire type names. Calendar is namespaced upstream.
var kindNames = map[string]Kind{
	"Wall":         KindWall,
	"Note":         KindNote,
	"Desk":         KindDesk,
	"Link":         KindLink,
	"ZoomLink":     KindZoomLink,
	"AudioBlock":   KindAudioBlock,
	"RC::Calendar": KindCalendar,
	"AudioRoom":    KindAudioRoom,
	"Avatar":       KindAvatar,
	"Bot":          KindBot,
}

// ParseKind maps a wire type name to its Kind.
func ParseKind(name string) Kind {
	return kindNames[name]
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "Unknown"
}

// Position is a grid position; the wire y axis is the world z axis.
type Position struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// World returns the position on the floor plane.
func (p Position) World() math.Vec3 {
	return math.V3(p.X, 0, p.Y)
}

// Base holds the fields every record carries.
type Base struct {
	ID      ID       `json:"id"`
	Type    string   `json:"type"`
	Pos     Position `json:"pos"`
	Deleted bool     `json:"deleted,omitempty"`
}

// Header returns the common fields.
func (b Base) Header() Base { return b }

func (Base) isEntity() {}

// Entity is one decoded record. The set of implementations is closed.
type Entity interface {
	Header() Base
	isEntity()
}

// Wall is a unit cube colored by palette name.
type Wall struct {
	Base
	Color    string `json:"color"`
	WallText string `json:"wall_text,omitempty"`
}

// Note is a sticky note.
type Note struct {
	Base
	Text string `json:"note_text,omitempty"`
}

// Desk is a table top with four legs.
type Desk struct {
	Base
	Owner string `json:"owner_name,omitempty"`
}

// Link is a web link block.
type Link struct {
	Base
	URL string `json:"url,omitempty"`
}

// ZoomLink is a video call block.
type ZoomLink struct {
	Base
	URL string `json:"url,omitempty"`
}

// AudioBlock is a voice chat block.
type AudioBlock struct {
	Base
}

// Calendar is a shared calendar block.
type Calendar struct {
	Base
}

// AudioRoom is a flat floor tile spanning Width x Height grid cells
// with Pos at its top-left cell.
type AudioRoom struct {
	Base
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Avatar is a person in the space. Photo is attached by the network
// side before the record is queued and is never sent on the wire.
type Avatar struct {
	Base
	Name      string      `json:"person_name,omitempty"`
	ImagePath string      `json:"image_path,omitempty"`
	Photo     image.Image `json:"-"`
}

// Bot is an API-driven avatar.
type Bot struct {
	Base
	Name  string `json:"name,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// Unknown keeps records of a type this viewer does not draw.
type Unknown struct {
	Base
	Raw json.RawMessage `json:"-"`
}

// KindOf returns the kind of e.
func KindOf(e Entity) Kind {
	switch e.(type) {
	case *Wall:
		return KindWall
	case *Note:
		return KindNote
	case *Desk:
		return KindDesk
	case *Link:
		return KindLink
	case *ZoomLink:
		return KindZoomLink
	case *AudioBlock:
		return KindAudioBlock
	case *Calendar:
		return KindCalendar
	case *AudioRoom:
		return KindAudioRoom
	case *Avatar:
		return KindAvatar
	case *Bot:
		return KindBot
	}
	return KindUnknown
}

// Decode parses one entity record.
func Decode(data []byte) (Entity, error) {
	var base Base
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var e Entity
	switch ParseKind(base.Type) {
	case KindWall:
		e = &Wall{}
	case KindNote:
		e = &Note{}
	case KindDesk:
		e = &Desk{}
	case KindLink:
		e = &Link{}
	case KindZoomLink:
		e = &ZoomLink{}
	case KindAudioBlock:
		e = &AudioBlock{}
	case KindCalendar:
		e = &Calendar{}
	case KindAudioRoom:
		e = &AudioRoom{}
	case KindAvatar:
		e = &Avatar{}
	case KindBot:
		e = &Bot{}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Unknown{Base: base, Raw: raw}, nil
	}

	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("%w: %s %d: %v", ErrMalformed, base.Type, base.ID, err)
	}
	return e, nil
}

// DecodeList parses a JSON array of records. Malformed elements are
// skipped and reported through the returned error.
func DecodeList(data []byte) ([]Entity, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	entities := make([]Entity, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		e, err := Decode(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entities = append(entities, e)
	}
	return entities, errors.Join(errs...)
}
