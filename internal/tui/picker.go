package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/anikino/internal/domain"
)

// episodeItem implements list.DefaultItem
type episodeItem struct {
	ep      domain.EpisodeRef
	current bool // Last watched
}

func (i episodeItem) Title() string {
	title := fmt.Sprintf("%3d  %s", i.ep.Number, i.ep.Title)
	if i.current {
		title += " " + AccentStyle.Render("●")
	}
	return title
}

func (i episodeItem) Description() string {
	if i.ep.IsFiller {
		return WarnStyle.Render("filler")
	}
	return DimStyle.Render(i.ep.EpisodeID)
}

func (i episodeItem) FilterValue() string { return i.ep.Title }

// PickerModel lets the user choose an episode; list filtering is fuzzy
type PickerModel struct {
	list     list.Model
	selected *domain.EpisodeRef
}

// NewPickerModel lists episodes with the cursor on lastWatchedID
func NewPickerModel(title string, episodes []domain.EpisodeRef, lastWatchedID string) PickerModel {
	items := make([]list.Item, len(episodes))
	cursor := 0
	for i, ep := range episodes {
		items[i] = episodeItem{ep: ep, current: ep.EpisodeID == lastWatchedID}
		if ep.EpisodeID == lastWatchedID {
			cursor = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 24)
	l.Title = title
	l.Styles.Title = TitleStyle
	l.Select(cursor)
	return PickerModel{list: l}
}

func (m PickerModel) Init() tea.Cmd { return nil }

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		idx := m.list.Index()
		m.list.SetSize(msg.Width, msg.Height)
		m.list.Select(idx)
		return m, nil
	case tea.KeyMsg:
		// Keys belong to the filter input while typing
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, keys.Select):
			if item, ok := m.list.SelectedItem().(episodeItem); ok {
				ep := item.ep
				m.selected = &ep
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Quit) && m.list.FilterState() == list.Unfiltered:
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m PickerModel) View() string {
	return m.list.View()
}

// Selected returns the chosen episode, false when the user quit
func (m PickerModel) Selected() (domain.EpisodeRef, bool) {
	if m.selected == nil {
		return domain.EpisodeRef{}, false
	}
	return *m.selected, true
}
