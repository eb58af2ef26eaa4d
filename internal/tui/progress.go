// Package tui renders the terminal views of the play command
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/anikino/internal/playback"
)

// StateMsg reports a coordinator transition
type StateMsg struct {
	From, To playback.State
}

// DoneMsg carries the coordinator result
type DoneMsg struct {
	Ready *playback.Ready
	Err   error
}

// phases shown as a checklist, in order
var phases = []struct {
	loading, ready playback.State
	label          string
}{
	{playback.StateMetadataLoading, playback.StateMetadataReady, "Anime metadata"},
	{playback.StateEpisodesLoading, playback.StateEpisodesReady, "Episode list"},
	{playback.StateSourceResolving, playback.StateReady, "Mirror"},
}

// ProgressModel shows a spinner while a playback run is in flight
type ProgressModel struct {
	title   string
	spinner spinner.Model
	reached playback.State // Furthest non-failed state
	failed  bool
	done    *DoneMsg
	cancel  context.CancelFunc
}

// NewProgressModel creates the view. cancel aborts the run on quit.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{
		title:   title,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(AccentStyle)),
		reached: playback.StateInit,
		cancel:  cancel,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case StateMsg:
		if msg.To == playback.StateFailed {
			m.failed = true
		} else if msg.To > m.reached {
			m.reached = msg.To
		}
		return m, nil
	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Result returns the run outcome once the program has exited
func (m ProgressModel) Result() (*playback.Ready, error) {
	if m.done == nil {
		return nil, context.Canceled
	}
	return m.done.Ready, m.done.Err
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title) + "\n\n")

	for _, p := range phases {
		var glyph string
		switch {
		case m.reached >= p.ready:
			glyph = SuccessStyle.Render(GlyphDone)
		case m.reached == p.loading && m.failed:
			glyph = ErrorStyle.Render(GlyphFailed)
		case m.reached == p.loading:
			glyph = m.spinner.View()
		default:
			glyph = DimStyle.Render(GlyphPending)
		}
		fmt.Fprintf(&b, " %s %s\n", glyph, p.label)
	}

	if m.done == nil {
		b.WriteString(HelpStyle.Render("q: cancel") + "\n")
	}
	return b.String()
}
