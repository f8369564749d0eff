// internal/tui/review.go
//
// Terminal review surface for suspended workflow instances. Built on
// bubbletea's Elm-style loop:
//
// 1. Model: the review session state
// 2. Update: state transitions driven by key and result messages
// 3. View: renders state to a string
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalpost/signalpost/internal/draft"
	"github.com/signalpost/signalpost/internal/engine"
	"github.com/signalpost/signalpost/internal/instance"
)

type screen int

const (
	screenList screen = iota
	screenDetail
	screenEdit
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	postStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// reviewItem adapts an instance for the bubbles list.
type reviewItem struct {
	in instance.Instance
}

func (i reviewItem) Title() string {
	return fmt.Sprintf("%s  (%d source(s))", shortID(i.in.ID), len(i.in.Payload.Extractions))
}

func (i reviewItem) Description() string {
	return truncate(i.in.Payload.PostText, 72)
}

func (i reviewItem) FilterValue() string { return i.in.ID }

// instancesLoadedMsg delivers the suspended instances to the model.
type instancesLoadedMsg struct {
	instances []instance.Instance
	err       error
}

// resumeDoneMsg delivers the outcome of a decision.
type resumeDoneMsg struct {
	in  instance.Instance
	err error
}

// Model is the bubbletea model for the review session.
type Model struct {
	engine *engine.Engine
	store  instance.Store
	ctx    context.Context

	screen   screen
	list     list.Model
	editor   textarea.Model
	selected *instance.Instance
	notice   string
	errText  string
	quitting bool
}

// NewModel creates a review session over the given engine and store.
func NewModel(ctx context.Context, eng *engine.Engine, store instance.Store) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 80, 20)
	l.Title = "Suspended posts"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	editor := textarea.New()
	editor.Placeholder = "Edit the post text"
	editor.CharLimit = 0
	editor.SetWidth(76)
	editor.SetHeight(8)

	return Model{
		engine: eng,
		store:  store,
		ctx:    ctx,
		screen: screenList,
		list:   l,
		editor: editor,
	}
}

// Init loads the suspended instances.
func (m Model) Init() tea.Cmd {
	return m.loadInstances
}

func (m Model) loadInstances() tea.Msg {
	all, err := m.store.List()
	if err != nil {
		return instancesLoadedMsg{err: err}
	}
	var suspended []instance.Instance
	for _, in := range all {
		if in.Suspended() {
			suspended = append(suspended, in)
		}
	}
	return instancesLoadedMsg{instances: suspended}
}

func (m Model) resolve(id string, resolution instance.Resolution) tea.Cmd {
	return func() tea.Msg {
		in, err := m.engine.Resume(m.ctx, id, resolution)
		return resumeDoneMsg{in: in, err: err}
	}
}

// Update routes messages per screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case instancesLoadedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.instances))
		for i, in := range msg.instances {
			items[i] = reviewItem{in: in}
		}
		m.list.SetItems(items)
		return m, nil

	case resumeDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.screen = screenList
			return m, m.loadInstances
		}
		m.errText = ""
		switch msg.in.Status {
		case instance.StatusCommitted:
			m.notice = fmt.Sprintf("%s committed: %s", shortID(msg.in.ID), msg.in.StatusNote)
		case instance.StatusRejected:
			m.notice = fmt.Sprintf("%s rejected", shortID(msg.in.ID))
		case instance.StatusSuspended:
			m.notice = fmt.Sprintf("%s updated, awaiting review", shortID(msg.in.ID))
		default:
			m.notice = fmt.Sprintf("%s is now %s", shortID(msg.in.ID), msg.in.Status)
		}
		m.selected = nil
		m.screen = screenList
		return m, m.loadInstances

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch m.screen {
		case screenList:
			return m.updateList(msg)
		case screenDetail:
			return m.updateDetail(msg)
		case screenEdit:
			return m.updateEdit(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if item, ok := m.list.SelectedItem().(reviewItem); ok {
			in := item.in
			m.selected = &in
			m.screen = screenDetail
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.selected == nil {
		m.screen = screenList
		return m, nil
	}
	switch msg.String() {
	case "a":
		return m, m.resolve(m.selected.ID, instance.Resolution{Decision: instance.DecisionApprove})
	case "r":
		return m, m.resolve(m.selected.ID, instance.Resolution{Decision: instance.DecisionReject})
	case "e":
		m.editor.SetValue(m.selected.Payload.PostText)
		m.editor.Focus()
		m.screen = screenEdit
		return m, textarea.Blink
	case "esc", "q":
		m.selected = nil
		m.screen = screenList
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editor.Blur()
		m.screen = screenDetail
		return m, nil
	case "ctrl+s":
		text := m.editor.Value()
		m.editor.Blur()
		return m, m.resolve(m.selected.ID, instance.Resolution{
			Decision:   instance.DecisionEdit,
			EditedText: text,
		})
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	switch m.screen {
	case screenList:
		b.WriteString(m.list.View())
		b.WriteString("\n")
		if m.notice != "" {
			b.WriteString(resultStyle.Render(m.notice) + "\n")
		}
		b.WriteString(faintStyle.Render("enter: review  q: quit"))
	case screenDetail:
		b.WriteString(m.viewDetail())
	case screenEdit:
		b.WriteString(titleStyle.Render("Edit post") + "\n\n")
		b.WriteString(m.editor.View() + "\n\n")
		b.WriteString(faintStyle.Render("ctrl+s: save and revalidate  esc: back"))
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText))
	}
	return b.String()
}

func (m Model) viewDetail() string {
	in := m.selected
	if in == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Review "+shortID(in.ID)) + "\n\n")
	b.WriteString(postStyle.Render(in.Payload.PostText) + "\n\n")
	fmt.Fprintf(&b, "%s %d rune(s) excluding links\n", labelStyle.Render("Length:"), draft.EffectiveLength(in.Payload.PostText))
	if in.Meta.LengthOverrun {
		b.WriteString(errorStyle.Render("Over the platform limit after condensing") + "\n")
	}
	if in.Payload.Asset != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Asset:"), in.Payload.Asset.URL)
	} else {
		b.WriteString(faintStyle.Render("No asset attached") + "\n")
	}
	if len(in.Payload.FailedLinks) > 0 {
		fmt.Fprintf(&b, "%s %d link(s) failed extraction\n", labelStyle.Render("Warnings:"), len(in.Payload.FailedLinks))
	}
	b.WriteString("\n")
	for _, extraction := range in.Payload.Extractions {
		fmt.Fprintf(&b, "  - %s\n", extraction.SourceID)
	}
	b.WriteString("\n" + faintStyle.Render("a: approve  e: edit  r: reject  esc: back"))
	return b.String()
}

// Run starts the review TUI and blocks until the reviewer quits.
func Run(ctx context.Context, eng *engine.Engine, store instance.Store) error {
	program := tea.NewProgram(NewModel(ctx, eng, store), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
