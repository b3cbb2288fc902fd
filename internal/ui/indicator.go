package ui

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/doridoridoriand/netwatch/internal/log"
)

// Status is what the indicator currently shows.
type Status int

const (
	StatusHidden Status = iota
	StatusMonitoring
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusMonitoring:
		return "MONITORING"
	case StatusOnline:
		return "ONLINE"
	case StatusOffline:
		return "OFFLINE"
	default:
		return "IDLE"
	}
}

func (s Status) style() tcell.Style {
	switch s {
	case StatusOnline:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	case StatusOffline:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case StatusMonitoring:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

// StatusHolder is an indicator that remembers the last status shown.
type StatusHolder struct {
	mu     sync.RWMutex
	status Status
}

func (h *StatusHolder) set(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// Status returns the last status shown.
func (h *StatusHolder) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *StatusHolder) ShowMonitoring() { h.set(StatusMonitoring) }
func (h *StatusHolder) ShowOnline()     { h.set(StatusOnline) }
func (h *StatusHolder) ShowOffline()    { h.set(StatusOffline) }
func (h *StatusHolder) Hide()           { h.set(StatusHidden) }

// LogIndicator reports status changes as log lines, for headless runs.
type LogIndicator struct {
	StatusHolder
	logger *log.Logger
}

// NewLogIndicator logs through logger.
func NewLogIndicator(logger *log.Logger) *LogIndicator {
	if logger == nil {
		logger = log.Nop()
	}
	return &LogIndicator{logger: logger}
}

func (l *LogIndicator) show(s Status, message string) {
	l.set(s)
	l.logger.Info(message, map[string]interface{}{"status": s.String()})
}

func (l *LogIndicator) ShowMonitoring() { l.show(StatusMonitoring, "connectivity monitoring started") }
func (l *LogIndicator) ShowOnline()     { l.show(StatusOnline, "back online") }
func (l *LogIndicator) ShowOffline()    { l.show(StatusOffline, "connection lost") }
func (l *LogIndicator) Hide()           { l.show(StatusHidden, "connectivity monitoring stopped") }

// Indicator matches the monitor's status sink.
type Indicator interface {
	ShowMonitoring()
	ShowOnline()
	ShowOffline()
	Hide()
}

// Multi fans every call out to each indicator in order.
type Multi []Indicator

func (m Multi) ShowMonitoring() {
	for _, i := range m {
		i.ShowMonitoring()
	}
}

func (m Multi) ShowOnline() {
	for _, i := range m {
		i.ShowOnline()
	}
}

func (m Multi) ShowOffline() {
	for _, i := range m {
		i.ShowOffline()
	}
}

func (m Multi) Hide() {
	for _, i := range m {
		i.Hide()
	}
}
