// Package tui renders a search session as an interactive user picker.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/search"
)

// Mode is the screen the picker runs.
type Mode int

const (
	// ModeUsers browses the directory and opens a direct conversation.
	ModeUsers Mode = iota
	// ModeInvite picks users to add to an existing channel.
	ModeInvite
	// ModeCreate names a new channel and picks its members.
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeInvite:
		return "invite"
	case ModeCreate:
		return "create"
	default:
		return "users"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "users", "":
		return ModeUsers, nil
	case "invite":
		return ModeInvite, nil
	case "create":
		return ModeCreate, nil
	default:
		return ModeUsers, fmt.Errorf("unknown mode %q", s)
	}
}

// Actions are the channel calls the picker finalises with.
type Actions interface {
	OpenDirect(ctx context.Context, userID string) (*domain.Channel, error)
	Invite(ctx context.Context, channelID string, userIDs []string) (*domain.Channel, error)
	CreateChannel(ctx context.Context, req *domain.CreateChannelRequest) (*domain.Channel, error)
}

// Options configure a Model.
type Options struct {
	Mode      Mode
	ChannelID string // invite target
}

type focus int

const (
	focusQuery focus = iota
	focusName
	focusList
)

// Model is the bubbletea model of the picker.
type Model struct {
	ctx       context.Context
	session   *search.Session
	actions   Actions
	mode      Mode
	channelID string

	query      textinput.Model
	name       textinput.Model
	focus      focus
	visibility domain.Visibility
	cursor     int

	snap       search.Snapshot
	notice     string
	failure    string
	submitting bool
	result     *domain.Channel

	keys   keyMap
	help   help.Model
	styles styles
	width  int
}

// New creates a picker over session.
func New(ctx context.Context, session *search.Session, actions Actions, opts Options) *Model {
	query := textinput.New()
	query.Placeholder = "Search users..."
	query.Prompt = "› "
	query.Focus()

	name := textinput.New()
	name.Placeholder = "channel name"
	name.Prompt = "# "
	name.CharLimit = domain.MaxNameLength

	m := &Model{
		ctx:        ctx,
		session:    session,
		actions:    actions,
		mode:       opts.Mode,
		channelID:  opts.ChannelID,
		query:      query,
		name:       name,
		visibility: domain.VisibilityPublic,
		keys:       newKeyMap(),
		help:       help.New(),
		styles:     newStyles(),
	}

	switch m.mode {
	case ModeCreate:
		session.SetMode(search.ModeAll)
		m.setFocus(focusName)
	case ModeInvite:
		session.SetMode(search.ModeManual)
	}
	m.snap = session.Snapshot()
	return m
}

// Subscribe forwards session changes to send, typically tea.Program.Send,
// until the model's context ends. Listeners can fire from inside Update, so
// snapshots go through a one-slot channel that keeps only the newest.
func (m *Model) Subscribe(send func(tea.Msg)) {
	latest := make(chan search.Snapshot, 1)
	m.session.OnChange(func(s search.Snapshot) {
		for {
			select {
			case latest <- s:
				return
			default:
				select {
				case <-latest:
				default:
				}
			}
		}
	})

	go func() {
		for {
			select {
			case <-m.ctx.Done():
				return
			case s := <-latest:
				send(SnapshotMsg(s))
			}
		}
	}()
}

// Result returns the channel the picker finished with, if any.
func (m *Model) Result() *domain.Channel {
	return m.result
}

// Init starts the first search.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.searchCmd(""))
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(search.Snapshot(msg))
		return m, nil

	case fetchDoneMsg:
		m.applySnapshot(m.session.Snapshot())
		if search.IsNotice(msg.err) {
			m.notice = msg.err.Error()
		}
		return m, nil

	case actionDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.failure = msg.err.Error()
			return m, nil
		}
		m.result = msg.channel
		m.session.Close()
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.LoadMore):
		m.notice = ""
		return m, m.loadMoreCmd()

	case key.Matches(msg, m.keys.Retry):
		m.notice = ""
		return m, m.retryCmd()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus()
		return m, nil
	}

	if m.mode != ModeUsers {
		switch {
		case key.Matches(msg, m.keys.Toggle) && m.focus == focusList:
			if e, ok := m.current(); ok {
				m.session.Toggle(e.ID)
				m.applySnapshot(m.session.Snapshot())
			}
			return m, nil

		case key.Matches(msg, m.keys.ToggleAll):
			m.session.ToggleAll()
			m.applySnapshot(m.session.Snapshot())
			return m, nil

		case key.Matches(msg, m.keys.Visibility) && m.mode == ModeCreate:
			m.toggleVisibility()
			return m, nil
		}
	}

	return m, m.updateInput(msg)
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	if m.focus == focusList {
		m.setFocus(focusQuery)
	}

	var cmd tea.Cmd
	if m.focus == focusName {
		m.name, cmd = m.name.Update(msg)
		m.failure = ""
		return cmd
	}

	before := m.query.Value()
	m.query, cmd = m.query.Update(msg)
	if value := m.query.Value(); value != before {
		m.notice = ""
		m.cursor = 0
		m.session.Input(value)
	}
	return cmd
}

func (m *Model) toggleVisibility() {
	if m.visibility == domain.VisibilityPublic {
		m.visibility = domain.VisibilityPrivate
		m.session.SetMode(search.ModeManual)
	} else {
		m.visibility = domain.VisibilityPublic
		m.session.SetMode(search.ModeAll)
	}
	m.applySnapshot(m.session.Snapshot())
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.query.Blur()
	m.name.Blur()
	switch f {
	case focusQuery:
		m.query.Focus()
	case focusName:
		m.name.Focus()
	}
}

func (m *Model) cycleFocus() {
	order := []focus{focusQuery, focusList}
	if m.mode == ModeCreate {
		order = []focus{focusName, focusQuery, focusList}
	}
	for i, f := range order {
		if f == m.focus {
			m.setFocus(order[(i+1)%len(order)])
			return
		}
	}
	m.setFocus(order[0])
}

func (m *Model) moveCursor(delta int) {
	if m.mode != ModeUsers {
		m.setFocus(focusList)
	}
	n := len(m.snap.Entries)
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m *Model) applySnapshot(s search.Snapshot) {
	m.snap = s
	if m.cursor >= len(s.Entries) {
		m.cursor = len(s.Entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) current() (directory.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Entries) {
		return directory.Entry{}, false
	}
	return m.snap.Entries[m.cursor], true
}

func (m *Model) submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.failure = ""

	ctx, actions := m.ctx, m.actions
	switch m.mode {
	case ModeUsers:
		e, ok := m.current()
		if !ok {
			m.failure = "Select a user to message"
			return nil
		}
		m.submitting = true
		return func() tea.Msg {
			ch, err := actions.OpenDirect(ctx, e.ID)
			return actionDoneMsg{channel: ch, err: err}
		}

	case ModeInvite:
		ids := m.snap.Selected
		if len(ids) == 0 {
			m.failure = "Select at least one user to invite"
			return nil
		}
		m.submitting = true
		channelID := m.channelID
		return func() tea.Msg {
			ch, err := actions.Invite(ctx, channelID, ids)
			return actionDoneMsg{channel: ch, err: err}
		}

	case ModeCreate:
		name, err := domain.ValidateName(m.name.Value())
		if err != nil {
			m.failure = err.Error()
			return nil
		}
		req := &domain.CreateChannelRequest{
			Name:       name,
			Visibility: m.visibility,
			MemberIDs:  m.snap.Selected,
		}
		m.submitting = true
		return func() tea.Msg {
			ch, err := actions.CreateChannel(ctx, req)
			return actionDoneMsg{channel: ch, err: err}
		}
	}
	return nil
}

func (m *Model) searchCmd(query string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: s.Search(ctx, query)}
	}
}

func (m *Model) retryCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: s.Retry(ctx)}
	}
}

func (m *Model) loadMoreCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: s.LoadMore(ctx)}
	}
}
