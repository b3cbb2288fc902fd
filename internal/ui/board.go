package ui

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const historySize = 32

// TargetStatus is the per-target view shown in the terminal.
type TargetStatus struct {
	Name         string
	Address      string
	Group        string
	LastOK       bool
	LastRTT      time.Duration
	LastCheck    time.Time
	Probed       bool
	TotalSuccess int
	TotalFailure int
	History      []time.Duration
}

// Board accumulates probe results for display.
type Board struct {
	mu      sync.RWMutex
	targets map[string]*TargetStatus
	order   []string
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{targets: make(map[string]*TargetStatus)}
}

// Register adds a target so it is shown before its first probe.
func (b *Board) Register(name, address, group string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.targets[name]; ok {
		return
	}
	b.targets[name] = &TargetStatus{Name: name, Address: address, Group: group}
	b.order = append(b.order, name)
}

// Record stores one probe result. Failed probes keep a zero RTT in history.
func (b *Board) Record(name string, ok bool, rtt time.Duration, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, found := b.targets[name]
	if !found {
		t = &TargetStatus{Name: name}
		b.targets[name] = t
		b.order = append(b.order, name)
	}
	t.Probed = true
	t.LastOK = ok
	t.LastCheck = at
	if ok {
		t.LastRTT = rtt
		t.TotalSuccess++
	} else {
		t.LastRTT = 0
		t.TotalFailure++
	}
	t.History = append(t.History, t.LastRTT)
	if len(t.History) > historySize {
		t.History = t.History[len(t.History)-historySize:]
	}
}

// Snapshot returns copies of every target in registration order.
func (b *Board) Snapshot() []TargetStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TargetStatus, 0, len(b.order))
	for _, name := range b.order {
		t := *b.targets[name]
		t.History = append([]time.Duration(nil), t.History...)
		out = append(out, t)
	}
	return out
}

type targetGroup struct {
	Name    string
	Targets []TargetStatus
}

func groupTargets(snapshot []TargetStatus) []targetGroup {
	if len(snapshot) == 0 {
		return nil
	}
	groups := make(map[string][]TargetStatus)
	for _, target := range snapshot {
		name := strings.TrimSpace(target.Group)
		if name == "" {
			name = "default"
		}
		groups[name] = append(groups[name], target)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "default" {
			return true
		}
		if names[j] == "default" {
			return false
		}
		return names[i] < names[j]
	})

	result := make([]targetGroup, 0, len(names))
	for _, name := range names {
		result = append(result, targetGroup{Name: name, Targets: groups[name]})
	}
	return result
}

func calculateAvgRTT(target TargetStatus) time.Duration {
	var sum time.Duration
	n := 0
	for _, rtt := range target.History {
		if rtt > 0 {
			sum += rtt
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

func calculateLossPercent(target TargetStatus) float64 {
	total := target.TotalSuccess + target.TotalFailure
	if total == 0 {
		return 0.0
	}
	return float64(target.TotalFailure) / float64(total) * 100.0
}
