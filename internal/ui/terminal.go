package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/doridoridoriand/netwatch/internal/config"
	"github.com/doridoridoriand/netwatch/internal/state"
)

const (
	refreshInterval = 500 * time.Millisecond
	minBoxHeight    = 4
	barScale        = 10 * time.Millisecond
)

// Controller is the part of the monitor the terminal drives.
type Controller interface {
	Start() bool
	Stop() bool
	Snapshot() state.Snapshot
	Uptime() time.Duration
}

// Terminal is a full-screen status indicator with start/stop keys.
type Terminal struct {
	StatusHolder
	cfg        config.GlobalOptions
	controller Controller
	board      *Board
	newScreen  func() (tcell.Screen, error)
}

// NewTerminal renders monitor state and board targets.
func NewTerminal(cfg config.GlobalOptions, board *Board) *Terminal {
	return &Terminal{
		cfg:       cfg,
		board:     board,
		newScreen: tcell.NewScreen,
	}
}

// Run drives controller from the keyboard until ctx is cancelled or the user
// quits. Quitting returns context.Canceled so callers can shut down.
func (t *Terminal) Run(ctx context.Context, controller Controller) error {
	t.controller = controller
	screen, err := t.newScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	screen.HideCursor()
	defer screen.Fini()

	eventCh := make(chan tcell.Event, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	t.render(screen)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if t.apply(keyAction(ev.Key(), ev.Rune())) {
					return context.Canceled
				}
				t.render(screen)
			case *tcell.EventResize:
				screen.Sync()
				t.render(screen)
			}
		case <-ticker.C:
			t.render(screen)
		}
	}
}

type action int

const (
	actionNone action = iota
	actionStart
	actionStop
	actionQuit
)

func keyAction(key tcell.Key, r rune) action {
	if key == tcell.KeyCtrlC || key == tcell.KeyEscape {
		return actionQuit
	}
	if key != tcell.KeyRune {
		return actionNone
	}
	switch r {
	case 'q', 'Q':
		return actionQuit
	case 's', 'S':
		return actionStart
	case 'x', 'X':
		return actionStop
	}
	return actionNone
}

// apply performs a key action and reports whether the user asked to quit.
func (t *Terminal) apply(a action) bool {
	switch a {
	case actionQuit:
		return true
	case actionStart:
		t.controller.Start()
	case actionStop:
		t.controller.Stop()
	}
	return false
}

func (t *Terminal) render(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	if width < 20 || height < 5 {
		screen.Show()
		return
	}

	now := time.Now()
	header := fmt.Sprintf(" netwatch  %s  (s start, x stop, q quit)", now.Format("2006-01-02 15:04:05"))
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Bold(true))
	drawText(screen, 0, 1, width, formatConfigInfo(t.cfg), tcell.StyleDefault.Foreground(tcell.ColorGray))
	drawStyledText(screen, 0, 2, width, formatStatusLine(width, t.Status(), t.controller.Snapshot(), t.controller.Uptime()))

	y := 3
	for _, group := range groupTargets(t.board.Snapshot()) {
		if height-y < minBoxHeight {
			break
		}
		boxHeight := len(group.Targets) + 2
		if boxHeight > height-y {
			boxHeight = height - y
		}
		drawGroupBox(screen, 0, y, width, boxHeight, group)
		y += boxHeight
	}

	screen.Show()
}

func drawGroupBox(screen tcell.Screen, x, y, width, height int, group targetGroup) {
	drawBox(screen, x, y, width, height)
	drawText(screen, x+2, y, width-4, fmt.Sprintf(" %s ", group.Name), tcell.StyleDefault.Bold(true))

	maxRows := height - 2
	for i := 0; i < len(group.Targets) && i < maxRows; i++ {
		drawStyledText(screen, x+1, y+1+i, width-2, formatTargetLine(width-2, group.Targets[i]))
	}
}

func formatStatusLine(width int, status Status, snap state.Snapshot, uptime time.Duration) []styledRune {
	parts := []styledText{
		{text: " status: ", style: tcell.StyleDefault},
		{text: padOrTrim(status.String(), 10), style: status.style()},
		{text: fmt.Sprintf(" state=%s for %s", snap.State, formatDuration(uptime)), style: tcell.StyleDefault},
	}
	if snap.Session != "" {
		parts = append(parts, styledText{text: " session=" + shortSession(snap.Session), style: tcell.StyleDefault})
	}
	if snap.WakeHeld {
		parts = append(parts, styledText{text: " [awake]", style: tcell.StyleDefault.Foreground(tcell.ColorTeal)})
	}
	if snap.Degraded {
		parts = append(parts, styledText{text: " [degraded]", style: tcell.StyleDefault.Foreground(tcell.ColorYellow)})
	}
	return flattenStyledText(parts, width)
}

func shortSession(session string) string {
	if i := strings.IndexByte(session, '-'); i > 0 {
		return session[:i]
	}
	return session
}

func formatTargetLine(width int, target TargetStatus) []styledRune {
	style := targetStyle(target)
	label := "----"
	if target.Probed {
		label = "NG"
		if target.LastOK {
			label = "OK"
		}
	}

	parts := []styledText{
		{text: padOrTrim(target.Name, minInt(14, width)), style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: padOrTrim(target.Address, minInt(18, width)), style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: padOrTrim(label, 4), style: style},
		{text: " ", style: tcell.StyleDefault},
		{text: padOrTrim("RTT:"+formatRTT(target.LastRTT), 11), style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: padOrTrim("AVG:"+formatRTT(calculateAvgRTT(target)), 11), style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: padOrTrim(fmt.Sprintf("LOSS:%.1f%%", calculateLossPercent(target)), 11), style: style},
		{text: " ", style: tcell.StyleDefault},
	}

	used := 0
	for _, p := range parts {
		used += len([]rune(p.text))
	}
	if barWidth := width - used; barWidth > 0 {
		parts = append(parts, styledText{text: buildHistory(target.History, barWidth), style: style})
	}
	return flattenStyledText(parts, width)
}

// buildHistory draws one cell per recent probe, newest on the right.
func buildHistory(history []time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	if len(history) > width {
		history = history[len(history)-width:]
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(history)))
	for _, rtt := range history {
		b.WriteRune(historyCell(rtt))
	}
	return b.String()
}

func historyCell(rtt time.Duration) rune {
	switch {
	case rtt <= 0:
		return 'X'
	case rtt < barScale*5:
		return '.'
	case rtt < barScale*20:
		return 'o'
	default:
		return 'O'
	}
}

func targetStyle(target TargetStatus) tcell.Style {
	switch {
	case !target.Probed:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	case target.LastOK:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
}

func formatConfigInfo(cfg config.GlobalOptions) string {
	return fmt.Sprintf(" probe=%s/%s  timeout=%s  backoff=%s..%s  wakehold=%s",
		formatDuration(cfg.ProbeInterval), cfg.ProbeMethod, formatDuration(cfg.ProbeTimeout),
		formatDuration(cfg.BackoffInitial), formatDuration(cfg.BackoffMax), cfg.WakeHold)
}
