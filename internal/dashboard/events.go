package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/tempdash/internal/sensor"
	"github.com/luki/tempdash/internal/socket"
)

// SettingsUpdatedMsg carries a sensor-settings-updated push event.
type SettingsUpdatedMsg struct{ Settings sensor.Settings }

// ConnectionLostMsg carries a sensor-connection-lost push event.
type ConnectionLostMsg struct{ DeviceID string }

// LinkStatusMsg reports a push channel status change.
type LinkStatusMsg struct {
	Status socket.Status
	Err    error
}

const eventBuffer = 64

// Subscribe registers handlers on c that forward its events as messages on
// the returned channel. Events are dropped while the buffer is full so the
// socket read loop never blocks on the UI.
func Subscribe(c *socket.Client) <-chan tea.Msg {
	ch := make(chan tea.Msg, eventBuffer)
	forward := func(msg tea.Msg) {
		select {
		case ch <- msg:
		default:
		}
	}

	c.OnSettingsUpdated(func(s sensor.Settings) { forward(SettingsUpdatedMsg{Settings: s}) })
	c.OnConnectionLost(func(id string) { forward(ConnectionLostMsg{DeviceID: id}) })
	c.OnStatus(func(s socket.Status, err error) { forward(LinkStatusMsg{Status: s, Err: err}) })
	return ch
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
