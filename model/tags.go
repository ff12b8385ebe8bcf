package model

import (
	"fmt"
	"math/bits"
	"strings"
)

// Tag is a capability class carried by an entity or a template. The set is
// closed so targeting rules can switch over it exhaustively.
type Tag uint8

const (
	Infantry Tag = iota
	Cavalry
	Melee
	Ranged
	Siege
	Champion
	Hero
	Support // healers and other non-fighting escorts
	Worker
	Trader
	Ship
	Structure
	CivCentre
	Town
	Village
	Gate
	Wall
	Tower
	Dropsite
	Barracks
	Stable
	Workshop
	Fortress
	Dock
	House
	ConquestCritical
	numTags
)

var tagNames = [numTags]string{
	Infantry:         "Infantry",
	Cavalry:          "Cavalry",
	Melee:            "Melee",
	Ranged:           "Ranged",
	Siege:            "Siege",
	Champion:         "Champion",
	Hero:             "Hero",
	Support:          "Support",
	Worker:           "Worker",
	Trader:           "Trader",
	Ship:             "Ship",
	Structure:        "Structure",
	CivCentre:        "CivCentre",
	Town:             "Town",
	Village:          "Village",
	Gate:             "Gate",
	Wall:             "Wall",
	Tower:            "Tower",
	Dropsite:         "Dropsite",
	Barracks:         "Barracks",
	Stable:           "Stable",
	Workshop:         "Workshop",
	Fortress:         "Fortress",
	Dock:             "Dock",
	House:            "House",
	ConquestCritical: "ConquestCritical",
}

func (t Tag) String() string {
	if t < numTags {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// ParseTag resolves a tag name case-insensitively.
func ParseTag(s string) (Tag, error) {
	for i, n := range tagNames {
		if strings.EqualFold(n, s) {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tag %q", s)
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	v, err := ParseTag(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TagSet is a bitmask of tags.
type TagSet uint64

// Tags builds a set from individual tags.
func Tags(ts ...Tag) TagSet {
	var s TagSet
	for _, t := range ts {
		s |= 1 << t
	}
	return s
}

func (s TagSet) Has(t Tag) bool           { return s&(1<<t) != 0 }
func (s TagSet) HasAll(o TagSet) bool     { return s&o == o }
func (s TagSet) HasAny(o TagSet) bool     { return s&o != 0 }
func (s TagSet) With(ts ...Tag) TagSet    { return s | Tags(ts...) }
func (s TagSet) Without(ts ...Tag) TagSet { return s &^ Tags(ts...) }
func (s TagSet) Empty() bool              { return s == 0 }
func (s TagSet) Len() int                 { return bits.OnesCount64(uint64(s)) }

// List returns the contained tags in enumeration order.
func (s TagSet) List() []Tag {
	var out []Tag
	for t := Tag(0); t < numTags; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// String joins tag names with "+", e.g. "Infantry+Ranged".
func (s TagSet) String() string {
	names := make([]string, 0, s.Len())
	for _, t := range s.List() {
		names = append(names, t.String())
	}
	return strings.Join(names, "+")
}

func (s TagSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "+", "," or whitespace separated tag names so the set
// can be written naturally in config files.
func (s *TagSet) UnmarshalText(b []byte) error {
	fields := strings.FieldsFunc(string(b), func(r rune) bool {
		return r == '+' || r == ',' || r == ' ' || r == '\t'
	})
	var out TagSet
	for _, f := range fields {
		t, err := ParseTag(f)
		if err != nil {
			return err
		}
		out |= 1 << t
	}
	*s = out
	return nil
}
