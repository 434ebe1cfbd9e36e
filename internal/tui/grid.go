package tui

import (
	"fmt"
	"io"

	"github.com/Makepad-fr/gifboard/internal/model"
	"github.com/Makepad-fr/gifboard/internal/ui"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// gifItem adapts model.Entry to bubbles/list.Item
type gifItem struct {
	model.Entry
}

func (i gifItem) Title() string       { return i.Link }
func (i gifItem) Description() string { return shortKey(i.Submitter.String()) }
func (i gifItem) FilterValue() string { return i.Link }

// Custom delegate: one line per gif, submitter dimmed on the right
type gifDelegate struct{}

func (d gifDelegate) Height() int                               { return 1 }
func (d gifDelegate) Spacing() int                              { return 0 }
func (d gifDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d gifDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(gifItem)
	if !ok {
		return
	}
	by := mutedStyle.Render("by " + it.Description())
	room := m.Width() - lipgloss.Width(by) - 6
	link := linkStyle.Render(ui.Truncate(it.Link, room))

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s  %s", prefix, accentStyle.Render(symEntry), link, by)
}

func newGrid() list.Model {
	l := list.New(nil, gifDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("gif", "gifs")
	return l
}

func gridItems(entries []model.Entry) []list.Item {
	out := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, gifItem{Entry: e})
	}
	return out
}

func shortKey(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}
