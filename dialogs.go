package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/duopane/duopane/internal/fileops"
	"github.com/duopane/duopane/internal/textutil"
)

// confirmState guards destructive operations behind a y/n prompt.
type confirmState struct {
	active bool
	path   string
}

// collisionState is an in-flight planning collision waiting for the user.
// The planning goroutine blocks on reply; answering resumes it, so from the
// planner's point of view resolution is synchronous.
type collisionState struct {
	active   bool
	src      string
	dst      string
	reply    chan<- fileops.Resolution
	renaming bool
	input    textinput.Model
}

func (c *collisionState) answer(res fileops.Resolution) {
	if c.reply != nil {
		c.reply <- res
	}
	*c = collisionState{}
}

// promptKind selects what an active text prompt is for.
type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptRename
	promptMkdir
)

type promptState struct {
	active bool
	kind   promptKind
	target string // rename: path being renamed
	input  textinput.Model
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 255
	ti.Focus()
	return ti
}

// handleConfirmKey consumes a key while the delete confirmation is up.
func (m *model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		path := m.confirm.path
		m.confirm = confirmState{}
		return m.startOperation(fileops.OpDelete, path, "")
	case "n", "N", "esc":
		m.confirm = confirmState{}
		m.lastEvent = "Delete cancelled"
	}
	return nil
}

// handleCollisionKey consumes a key while a collision prompt is up.
func (m *model) handleCollisionKey(msg tea.KeyMsg) tea.Cmd {
	if m.collision.renaming {
		switch msg.String() {
		case "enter":
			name := m.collision.input.Value()
			if err := fileops.ValidateName(name); err != nil {
				m.lastEvent = fmt.Sprintf("Invalid name: %v", err)
				return nil
			}
			m.collision.answer(fileops.Resolution{Decision: fileops.DecideRename, NewName: name})
		case "esc":
			m.collision.renaming = false
		default:
			var cmd tea.Cmd
			m.collision.input, cmd = m.collision.input.Update(msg)
			return cmd
		}
		return nil
	}

	switch msg.String() {
	case "o", "O":
		m.collision.answer(fileops.Resolution{Decision: fileops.DecideOverwrite})
	case "s", "S":
		m.collision.answer(fileops.Resolution{Decision: fileops.DecideSkip})
	case "r", "R":
		m.collision.renaming = true
		m.collision.input = newInput(filepath.Base(m.collision.dst))
		return textinput.Blink
	case "a", "A", "esc":
		m.collision.answer(fileops.Resolution{Decision: fileops.DecideAbort})
		m.lastEvent = "Operation aborted"
	}
	return nil
}

// handlePromptKey consumes a key while a text prompt (search, rename, mkdir)
// is up.
func (m *model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.prompt = promptState{}
		return nil
	case "enter":
		value := m.prompt.input.Value()
		kind := m.prompt.kind
		target := m.prompt.target
		m.prompt = promptState{}
		return m.submitPrompt(kind, target, value)
	default:
		var cmd tea.Cmd
		m.prompt.input, cmd = m.prompt.input.Update(msg)
		return cmd
	}
}

func (m *model) submitPrompt(kind promptKind, target, value string) tea.Cmd {
	switch kind {
	case promptSearch:
		if value == "" {
			return nil
		}
		return m.startSearch(value)
	case promptRename:
		if err := fileops.RenameEntry(target, filepath.Join(filepath.Dir(target), value)); err != nil {
			m.lastEvent = fmt.Sprintf("Rename failed: %v", err)
			return nil
		}
		m.lastEvent = "Renamed"
		m.activePane().load()
	case promptMkdir:
		if err := fileops.ValidateName(value); err != nil {
			m.lastEvent = fmt.Sprintf("Invalid name: %v", err)
			return nil
		}
		if err := fileops.CreateDir(filepath.Join(m.activePane().dir, value)); err != nil {
			m.lastEvent = fmt.Sprintf("Mkdir failed: %v", err)
			return nil
		}
		m.lastEvent = "Directory created"
		m.activePane().load()
	}
	return nil
}

// dialogView renders whichever dialog is active, or "".
func (m *model) dialogView(width int) string {
	switch {
	case m.confirm.active:
		return ui.confirm.Render(fmt.Sprintf("Delete %s? (y/n)", textutil.TruncateLeft(m.confirm.path, max(width-16, 10))))
	case m.collision.active:
		if m.collision.renaming {
			return ui.confirm.Render("New name: ") + m.collision.input.View()
		}
		label := fmt.Sprintf("%s exists: (o)verwrite, (s)kip, (r)ename, (a)bort",
			textutil.TruncateLeft(m.collision.dst, max(width-44, 10)))
		return ui.confirm.Render(label)
	case m.prompt.active:
		var label string
		switch m.prompt.kind {
		case promptSearch:
			label = "Search: "
		case promptRename:
			label = "Rename to: "
		default:
			label = "New directory: "
		}
		return ui.accent.Render(label) + m.prompt.input.View()
	}
	return ""
}
