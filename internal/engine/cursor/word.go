package cursor

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/folio/internal/engine/post"
)

// unit is one cursor step inside a markerable section.
type unit struct {
	length int
	sep    bool
	atom   bool
}

// IsWordSeparator reports whether r breaks a word. Punctuation other than
// hyphen, plus, equals and pipe belongs to the word.
func IsWordSeparator(r rune) bool {
	switch r {
	case '-', '+', '=', '|':
		return true
	}
	return unicode.IsSpace(r)
}

// MoveWord returns the position at the next word boundary in direction dir.
// At a section boundary it crosses sections the way Move does.
func (p Position) MoveWord(dir Direction) Position {
	if p.Section == nil {
		return p
	}
	if !p.Section.IsMarkerable() {
		return p.Move(dir)
	}
	switch dir {
	case Forward:
		if p.IsTail() {
			return p.Move(dir)
		}
		return Position{Section: p.Section, Offset: wordEndAfter(sectionUnits(p.Section), p.Offset)}
	case Backward:
		if p.IsHead() {
			return p.Move(dir)
		}
		return Position{Section: p.Section, Offset: wordStartBefore(sectionUnits(p.Section), p.Offset)}
	}
	return p
}

func wordEndAfter(units []unit, offset int) int {
	pos, i := 0, 0
	for i < len(units) && pos+units[i].length <= offset {
		pos += units[i].length
		i++
	}
	if i < len(units) && pos < offset {
		pos += units[i].length
		i++
	}
	for i < len(units) && units[i].sep {
		pos += units[i].length
		i++
	}
	if i < len(units) && units[i].atom {
		return pos + 1
	}
	for i < len(units) && !units[i].sep && !units[i].atom {
		pos += units[i].length
		i++
	}
	return pos
}

func wordStartBefore(units []unit, offset int) int {
	starts := make([]int, len(units))
	total := 0
	for i, u := range units {
		starts[i] = total
		total += u.length
	}
	i := len(units) - 1
	for i >= 0 && starts[i] >= offset {
		i--
	}
	if i < 0 {
		return 0
	}
	if starts[i]+units[i].length > offset {
		// offset falls inside a unit; snap to its start
		if units[i].atom || units[i].sep {
			return starts[i]
		}
		i--
		for i >= 0 && !units[i].sep && !units[i].atom {
			i--
		}
		return starts[i+1]
	}
	for i >= 0 && units[i].sep {
		i--
	}
	if i < 0 {
		return 0
	}
	if units[i].atom {
		return starts[i]
	}
	for i >= 0 && !units[i].sep && !units[i].atom {
		i--
	}
	return starts[i+1]
}

// sectionUnits splits a markerable section into grapheme and atom units.
// Grapheme clusters never span markers.
func sectionUnits(s *post.Section) []unit {
	var out []unit
	for m := range s.Markers.All() {
		if m.IsAtom() {
			out = append(out, unit{length: 1, atom: true})
			continue
		}
		g := uniseg.NewGraphemes(m.Value)
		for g.Next() {
			cluster := g.Str()
			r, _ := utf8.DecodeRuneInString(cluster)
			out = append(out, unit{length: utf8.RuneCountInString(cluster), sep: IsWordSeparator(r)})
		}
	}
	return out
}
