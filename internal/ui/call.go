package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/warpcall/warpcall/internal/negotiation"
)

// CallSession is what the call view needs from a negotiation session.
type CallSession interface {
	Status() negotiation.Status
	Events() <-chan negotiation.Event
	RemoteMedia() *negotiation.RemoteMedia
	ToggleAudio() bool
	ToggleVideo() bool
}

type callKeyMap struct {
	Audio key.Binding
	Video key.Binding
	Quit  key.Binding
}

func (k callKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Audio, k.Video, k.Quit}
}

func (k callKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var callKeys = callKeyMap{
	Audio: key.NewBinding(key.WithKeys("a", "m"), key.WithHelp("a", "mute/unmute")),
	Video: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "camera on/off")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "leave")),
}

type sessionEventMsg negotiation.Event

type sessionEndedMsg struct{}

// CallModel renders a live call. It quits when the user leaves or the
// session ends on its own; the caller then calls Leave on the session.
type CallModel struct {
	session   CallSession
	spinner   spinner.Model
	help      help.Model
	status    negotiation.Status
	startTime time.Time

	// connectedAt is set on the first transition to Connected.
	connectedAt time.Time
	quitting    bool
	ended       bool
}

func NewCallModel(session CallSession) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		session:   session,
		spinner:   s,
		help:      help.New(),
		status:    session.Status(),
		startTime: time.Now(),
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *CallModel) waitForEvent() tea.Cmd {
	events := m.session.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionEndedMsg{}
		}
		return sessionEventMsg(ev)
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, callKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, callKeys.Audio):
			m.session.ToggleAudio()
			m.status = m.session.Status()
		case key.Matches(msg, callKeys.Video):
			m.session.ToggleVideo()
			m.status = m.session.Status()
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionEventMsg:
		m.status = m.session.Status()
		if msg.State == negotiation.Connected && m.connectedAt.IsZero() {
			m.connectedAt = time.Now()
		}
		if msg.State == negotiation.Closed {
			m.ended = true
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case sessionEndedMsg:
		m.status = m.session.Status()
		m.ended = true
		return m, tea.Quit
	}

	return m, nil
}

// Left reports whether the user asked to leave.
func (m *CallModel) Left() bool {
	return m.quitting
}

// Summary describes the call for the final table.
func (m *CallModel) Summary() CallSummary {
	st := m.status
	summary := CallSummary{
		RoomID: st.RoomID,
		PeerID: st.PeerID,
		State:  st.State.String(),
	}
	if !m.connectedAt.IsZero() {
		summary.Duration = time.Since(m.connectedAt).Round(time.Second)
	}
	if st.Err != nil {
		summary.Error = st.Err.Error()
	}
	return summary
}

func (m *CallModel) View() string {
	if m.quitting || m.ended {
		return ""
	}

	st := m.status
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s Room %s  %s\n\n", IconCall, BoldStyle.Foreground(Primary).Render(st.RoomID), StateBadge(st.State)))

	switch st.State {
	case negotiation.Connected:
		b.WriteString(fmt.Sprintf("%s %s %s\n", SuccessStyle.Render(IconConnect), IconPeer, st.PeerID))
		if remote := m.session.RemoteMedia(); remote != nil {
			kinds := make([]string, 0, len(remote.Tracks))
			for _, t := range remote.Tracks {
				kinds = append(kinds, t.Kind)
			}
			if len(kinds) > 0 {
				b.WriteString(MutedStyle.Render("  receiving "+strings.Join(kinds, ", ")) + "\n")
			}
		}
	case negotiation.Disconnected:
		b.WriteString(fmt.Sprintf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render("peer disconnected, waiting in room")))
	default:
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), stateMessage(st)))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  %s\n", trackIcon(st.AudioEnabled, IconMic, IconMicOff), onOff(st.AudioEnabled)))
	b.WriteString(fmt.Sprintf("  %s  %s\n", trackIcon(st.VideoEnabled, IconCamera, IconCameraOff), onOff(st.VideoEnabled)))

	if st.Err != nil {
		b.WriteString("\n" + ErrorStyle.Render(st.Err.Error()) + "\n")
	}

	b.WriteString("\n" + m.help.View(callKeys) + "\n")
	return b.String()
}

func stateMessage(st negotiation.Status) string {
	switch st.State {
	case negotiation.AcquiringMedia:
		return "Starting camera and microphone..."
	case negotiation.AwaitingPeer:
		if st.PeerID != "" {
			return fmt.Sprintf("%s Waiting for %s to call...", IconWaiting, st.PeerID)
		}
		return IconWaiting + " Waiting for someone to join..."
	case negotiation.Negotiating:
		return "Connecting to peer..."
	default:
		return st.State.String()
	}
}

func trackIcon(enabled bool, on, off string) string {
	if enabled {
		return on
	}
	return off
}

func onOff(enabled bool) string {
	if enabled {
		return SuccessStyle.Render("on")
	}
	return MutedStyle.Render("off")
}
