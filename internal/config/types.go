package config

import "time"

// ProbeMethod selects how a target is probed.
type ProbeMethod string

const (
	ProbeMethodAuto ProbeMethod = "auto"
	ProbeMethodICMP ProbeMethod = "icmp"
	ProbeMethodExec ProbeMethod = "exec"
	ProbeMethodDNS  ProbeMethod = "dns"
)

// WakeHoldMode selects the power-management primitive held while monitoring.
type WakeHoldMode string

const (
	WakeHoldNone     WakeHoldMode = "none"
	WakeHoldInhibit  WakeHoldMode = "inhibit"
	WakeHoldLockFile WakeHoldMode = "lockfile"
)

// GlobalOptions holds global settings parsed from config and CLI overrides.
type GlobalOptions struct {
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	ProbeMethod    ProbeMethod
	DNSName        string
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	SignalPoll     time.Duration
	SignalGateway  bool
	WakeHold       WakeHoldMode
	WakeHoldPath   string
	ControlListen  string
	UIDisable      bool
	LogLevel       string
	LogFile        string
	AutoStart      bool
}

// TargetConfig represents a single probe target.
type TargetConfig struct {
	Name    string
	Address string
	Group   string
	Method  ProbeMethod
	Options map[string]string
}

// Config is the parsed configuration file with global settings.
type Config struct {
	Targets []TargetConfig
	Global  GlobalOptions
}

// CLIOverrides holds optional CLI values that override config file values.
type CLIOverrides struct {
	ProbeInterval *time.Duration
	ProbeTimeout  *time.Duration
	ProbeMethod   *ProbeMethod
	WakeHold      *WakeHoldMode
	ControlListen *string
	UIDisable     *bool
	LogLevel      *string
	LogFile       *string
	AutoStart     *bool
}

// Parser defines config parsing behavior.
type Parser interface {
	LoadConfig(path string, overrides CLIOverrides) (*Config, error)
	ParseDirective(line string) (map[string]string, error)
	ParseTargetLine(line string, group string) (TargetConfig, error)
}
