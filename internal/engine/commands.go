package engine

import (
	"strings"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/posteditor"
)

// DeleteUnit selects how much a single delete removes.
type DeleteUnit = posteditor.DeleteUnit

// Delete units.
const (
	UnitChar     = posteditor.UnitChar
	UnitWord     = posteditor.UnitWord
	UnitGrapheme = posteditor.UnitGrapheme
)

// collapse deletes a non-collapsed range and returns where the cursor ends
// up.
func collapse(pe *posteditor.PostEditor) (cursor.Position, error) {
	r := pe.Range()
	if r.IsBlank() {
		return cursor.Position{}, ErrNoRange
	}
	if r.IsCollapsed() {
		return r.Head, nil
	}
	return pe.DeleteRange(r)
}

// InsertText types text at the cursor, replacing the selection. Each
// newline starts a new section. Markups toggled on a collapsed range apply
// to the inserted text.
func (e *Engine) InsertText(text string) error {
	e.mu.Lock()
	defer e.unlock()
	markups, explicit := e.activeMarkups, e.activeSet
	return e.run("insert text", func(pe *posteditor.PostEditor) error {
		pos, err := collapse(pe)
		if err != nil {
			return err
		}
		text = strings.ReplaceAll(text, "\r\n", "\n")
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				if pos, err = pe.SplitSection(pos); err != nil {
					return err
				}
			}
			if line == "" {
				continue
			}
			if explicit {
				pos, err = pe.InsertTextWithMarkups(pos, line, markups)
			} else {
				pos, err = pe.InsertText(pos, line)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertSectionBreak splits the section at the cursor, as the Enter key
// does.
func (e *Engine) InsertSectionBreak() error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("section break", func(pe *posteditor.PostEditor) error {
		pos, err := collapse(pe)
		if err != nil {
			return err
		}
		_, err = pe.SplitSection(pos)
		return err
	})
}

// DeleteBackward deletes the selection, or one unit before the cursor.
func (e *Engine) DeleteBackward(unit DeleteUnit) error {
	return e.deleteAt(cursor.Backward, unit)
}

// DeleteForward deletes the selection, or one unit after the cursor.
func (e *Engine) DeleteForward(unit DeleteUnit) error {
	return e.deleteAt(cursor.Forward, unit)
}

func (e *Engine) deleteAt(dir cursor.Direction, unit DeleteUnit) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("delete", func(pe *posteditor.PostEditor) error {
		r := pe.Range()
		if r.IsBlank() {
			return ErrNoRange
		}
		if !r.IsCollapsed() {
			_, err := pe.DeleteRange(r)
			return err
		}
		_, err := pe.DeleteAtPosition(r.Head, dir, unit)
		return err
	})
}

// DeleteRange deletes the content of r.
func (e *Engine) DeleteRange(r cursor.Range) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("delete range", func(pe *posteditor.PostEditor) error {
		_, err := pe.DeleteRange(r)
		return err
	})
}

// ToggleMarkup toggles a markup over the selection. On a collapsed range it
// toggles the markup for the next text typed at the cursor instead.
func (e *Engine) ToggleMarkup(tag string, attrs map[string]string) error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	if e.rng.IsCollapsed() {
		return e.toggleActiveMarkup(tag, attrs)
	}
	return e.run("toggle markup", func(pe *posteditor.PostEditor) error {
		return pe.ToggleMarkup(tag, attrs, pe.Range())
	})
}

func (e *Engine) toggleActiveMarkup(tag string, attrs map[string]string) error {
	mu, err := e.builder.CreateMarkup(tag, attrs)
	if err != nil {
		return err
	}
	var next []*post.Markup
	found := false
	for _, m := range e.currentMarkups() {
		if m.TagName == mu.TagName {
			found = true
			continue
		}
		next = append(next, m)
	}
	if !found {
		next = append(next, mu)
	}
	e.activeMarkups, e.activeSet = next, true
	return nil
}

// ActiveMarkups returns the markups text typed at the cursor would carry.
func (e *Engine) ActiveMarkups() []*post.Markup {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*post.Markup(nil), e.currentMarkups()...)
}

// HasActiveMarkup reports whether a markup with tag is active at the cursor.
func (e *Engine) HasActiveMarkup(tag string) bool {
	tag = post.NormalizeTagName(tag)
	for _, m := range e.ActiveMarkups() {
		if m.TagName == tag {
			return true
		}
	}
	return false
}

func (e *Engine) currentMarkups() []*post.Markup {
	if e.activeSet {
		return e.activeMarkups
	}
	if m, _ := e.rng.Head.Marker(); m != nil {
		return m.Markups
	}
	return nil
}

// ToggleSection converts the sections of the selection to tag, or back to
// paragraphs when they all have it already.
func (e *Engine) ToggleSection(tag string) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("toggle section", func(pe *posteditor.PostEditor) error {
		r, err := pe.ToggleSection(tag, pe.Range())
		if err != nil {
			return err
		}
		return pe.SetRange(r)
	})
}

// SetAttribute sets a section attribute on the sections of the selection.
func (e *Engine) SetAttribute(name, value string) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("set attribute", func(pe *posteditor.PostEditor) error {
		return pe.SetAttribute(name, value, pe.Range())
	})
}

// RemoveAttribute removes a section attribute from the sections of the
// selection.
func (e *Engine) RemoveAttribute(name string) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("remove attribute", func(pe *posteditor.PostEditor) error {
		return pe.RemoveAttribute(name, pe.Range())
	})
}

// InsertCard inserts a card section at the cursor, replacing the selection.
func (e *Engine) InsertCard(name string, payload map[string]any) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("insert card", func(pe *posteditor.PostEditor) error {
		pos, err := collapse(pe)
		if err != nil {
			return err
		}
		_, err = pe.InsertSection(pos, e.builder.CreateCardSection(name, payload))
		return err
	})
}

// InsertAtom inserts an atom at the cursor, replacing the selection. The
// atom carries the active markups.
func (e *Engine) InsertAtom(name, value string, payload map[string]any) error {
	e.mu.Lock()
	defer e.unlock()
	markups := e.currentMarkups()
	return e.run("insert atom", func(pe *posteditor.PostEditor) error {
		pos, err := collapse(pe)
		if err != nil {
			return err
		}
		_, err = pe.InsertAtom(pos, e.builder.CreateAtom(name, value, payload, markups...))
		return err
	})
}

// InsertPost inserts the content of other at the cursor, replacing the
// selection. A blank post inserts nothing.
func (e *Engine) InsertPost(other *post.Post) error {
	e.mu.Lock()
	defer e.unlock()
	return e.insertPost(other)
}

func (e *Engine) insertPost(other *post.Post) error {
	if other == nil || other.IsBlank() {
		return nil
	}
	return e.run("insert post", func(pe *posteditor.PostEditor) error {
		pos, err := collapse(pe)
		if err != nil {
			return err
		}
		_, err = pe.InsertPost(pos, other)
		return err
	})
}
