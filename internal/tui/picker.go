package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	bstrings "github.com/joss/benchsim/internal/strings"
)

// pathItem implements list.Item for a file or folder.
type pathItem struct {
	path    string
	relPath string
	current bool
}

func (i pathItem) Title() string {
	if i.current {
		return "● " + i.relPath
	}
	return "  " + i.relPath
}

func (i pathItem) Description() string { return i.path }
func (i pathItem) FilterValue() string { return i.relPath }

// fuzzyFilter ranks list targets by fuzzy match score.
func fuzzyFilter(term string, targets []string) []list.Rank {
	matches := fuzzy.Find(term, targets)
	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}

// Picker is a filterable list of paths shown relative to a base folder.
type Picker struct {
	list   list.Model
	items  []pathItem
	width  int
	height int
}

// NewPicker creates an empty picker.
func NewPicker(title string, width, height int) *Picker {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	delegate.SetSpacing(0)

	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("205")).
		BorderForeground(lipgloss.Color("205"))

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Filter = fuzzyFilter
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	return &Picker{list: l, width: width, height: height}
}

// SetPaths replaces the items. current, when present, is marked and
// selected.
func (p *Picker) SetPaths(paths []string, base, current string) {
	p.items = p.items[:0]
	items := make([]list.Item, 0, len(paths))
	selected := 0
	for i, path := range paths {
		it := pathItem{
			path:    path,
			relPath: bstrings.ShortPath(path, base),
			current: path == current,
		}
		if it.current {
			selected = i
		}
		p.items = append(p.items, it)
		items = append(items, it)
	}
	p.list.ResetFilter()
	p.list.SetItems(items)
	p.list.Select(selected)
}

// Update handles messages for the picker.
func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker.
func (p *Picker) View() string {
	return p.list.View()
}

// Selected returns the absolute path under the cursor.
func (p *Picker) Selected() (string, bool) {
	item, ok := p.list.SelectedItem().(pathItem)
	if !ok {
		return "", false
	}
	return item.path, true
}

// Filtering reports whether the filter input has focus, in which case
// every key belongs to the picker.
func (p *Picker) Filtering() bool {
	return p.list.FilterState() == list.Filtering
}

// Len returns the number of items, ignoring any filter.
func (p *Picker) Len() int {
	return len(p.items)
}

// SetSize updates the picker dimensions
func (p *Picker) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.list.SetSize(width, height)
}
