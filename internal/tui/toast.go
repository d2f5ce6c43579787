package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/uloaix/aicode/internal/router"
)

// DefaultToastTTL is how long a toast stays in the status bar.
const DefaultToastTTL = 3 * time.Second

// maxToasts caps how many toasts are visible at once.
const maxToasts = 3

// Toast is a transient status-bar message.
type Toast struct {
	ID      int
	Level   router.Level
	Message string
}

// toastSink collects notifications raised outside the update loop (the guard
// runs inside a navigation command) until the next message drains them.
type toastSink struct {
	mu      sync.Mutex
	pending []Toast
}

// Notify implements router.Notifier.
func (s *toastSink) Notify(level router.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Toast{Level: level, Message: message})
}

func (s *toastSink) drain() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

type toastExpiredMsg struct{ id int }

// pushToast shows t and schedules its removal.
func (m *Model) pushToast(level router.Level, message string) tea.Cmd {
	m.nextToastID++
	t := Toast{ID: m.nextToastID, Level: level, Message: message}
	m.toasts = append(m.toasts, t)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	ttl := m.toastTTL
	return tea.Tick(ttl, func(time.Time) tea.Msg { return toastExpiredMsg{id: t.ID} })
}

func (m *Model) pushToasts(ts []Toast) tea.Cmd {
	var cmds []tea.Cmd
	for _, t := range ts {
		cmds = append(cmds, m.pushToast(t.Level, t.Message))
	}
	return tea.Batch(cmds...)
}

func (m *Model) expireToast(id int) {
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Toasts returns the visible toasts, oldest first.
func (m Model) Toasts() []Toast {
	return append([]Toast(nil), m.toasts...)
}
