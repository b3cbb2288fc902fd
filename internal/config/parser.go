package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const directivePrefix = "netwatch:"

// NetwatchParser implements the Parser interface.
type NetwatchParser struct{}

// DefaultGlobalOptions returns baseline settings used before config overrides.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ProbeInterval:  5 * time.Second,
		ProbeTimeout:   2 * time.Second,
		ProbeMethod:    ProbeMethodAuto,
		DNSName:        "www.google.com.",
		BackoffInitial: 1 * time.Second,
		BackoffMax:     10 * time.Second,
		SignalPoll:     2 * time.Second,
		SignalGateway:  true,
		WakeHold:       WakeHoldInhibit,
		WakeHoldPath:   "",
		ControlListen:  "",
		UIDisable:      false,
		LogLevel:       "info",
		LogFile:        "",
		AutoStart:      true,
	}
}

// DefaultTargets is used when the config names no targets.
func DefaultTargets() []TargetConfig {
	return []TargetConfig{{
		Name:    "google",
		Address: "www.google.com",
		Options: map[string]string{},
	}}
}

// LoadConfig parses a netwatch.conf file with CLI overrides applied.
// An empty path yields the defaults.
func (p NetwatchParser) LoadConfig(path string, overrides CLIOverrides) (*Config, error) {
	cfg := &Config{Global: DefaultGlobalOptions()}

	if path != "" {
		if err := p.parseFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyCLIOverrides(&cfg.Global, overrides)
	if len(cfg.Targets) == 0 {
		cfg.Targets = DefaultTargets()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p NetwatchParser) parseFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	groupIndex := 0
	currentGroup := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "# "+directivePrefix) {
				if err := p.applyDirectiveLine(line, &cfg.Global); err != nil {
					return err
				}
			}
			continue
		}

		if strings.HasPrefix(line, directivePrefix) {
			if err := p.applyDirectiveLine(line, &cfg.Global); err != nil {
				return err
			}
			continue
		}

		if strings.HasPrefix(line, "---") {
			groupIndex++
			groupName := strings.TrimSpace(strings.TrimPrefix(line, "---"))
			if groupName == "" {
				groupName = fmt.Sprintf("group-%d", groupIndex)
			}
			currentGroup = groupName
			continue
		}

		target, err := p.ParseTargetLine(line, currentGroup)
		if err != nil {
			return err
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return scanner.Err()
}

func (p NetwatchParser) applyDirectiveLine(line string, global *GlobalOptions) error {
	pairs, err := p.ParseDirective(line)
	if err != nil {
		return err
	}
	return applyDirective(global, pairs)
}

// ParseDirective extracts key=value pairs from a directive line.
func (p NetwatchParser) ParseDirective(line string) (map[string]string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}
	if !strings.HasPrefix(trimmed, directivePrefix) {
		return nil, fmt.Errorf("directive line must start with '# netwatch:' or 'netwatch:': %q", line)
	}
	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, directivePrefix))
	if payload == "" {
		return map[string]string{}, nil
	}

	pairs := make(map[string]string)
	for _, token := range strings.Fields(payload) {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid directive token: %q", token)
		}
		pairs[kv[0]] = kv[1]
	}
	return pairs, nil
}

// ParseTargetLine parses a single target definition.
func (p NetwatchParser) ParseTargetLine(line string, group string) (TargetConfig, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return TargetConfig{}, fmt.Errorf("invalid target line: %q", line)
	}

	target := TargetConfig{
		Name:    fields[0],
		Address: fields[1],
		Group:   group,
		Options: map[string]string{},
	}

	if len(fields) > 2 {
		for _, field := range fields[2:] {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 {
				return TargetConfig{}, fmt.Errorf("invalid target option: %q", field)
			}
			target.Options[kv[0]] = kv[1]
		}
	}

	if method, ok := target.Options["method"]; ok {
		parsed, err := parseProbeMethod(method)
		if err != nil {
			return TargetConfig{}, fmt.Errorf("target %s: %w", target.Name, err)
		}
		target.Method = parsed
	}

	return target, nil
}

func applyDirective(global *GlobalOptions, pairs map[string]string) error {
	for key, val := range pairs {
		switch key {
		case "probe.interval":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid probe.interval: %w", err)
			}
			global.ProbeInterval = d
		case "probe.timeout":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid probe.timeout: %w", err)
			}
			global.ProbeTimeout = d
		case "probe.method":
			m, err := parseProbeMethod(val)
			if err != nil {
				return err
			}
			global.ProbeMethod = m
		case "probe.dns_name":
			global.DNSName = val
		case "backoff.initial":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid backoff.initial: %w", err)
			}
			global.BackoffInitial = d
		case "backoff.max":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid backoff.max: %w", err)
			}
			global.BackoffMax = d
		case "signal.poll":
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid signal.poll: %w", err)
			}
			global.SignalPoll = d
		case "signal.gateway":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid signal.gateway: %w", err)
			}
			global.SignalGateway = b
		case "wakehold":
			m, err := parseWakeHoldMode(val)
			if err != nil {
				return err
			}
			global.WakeHold = m
		case "wakehold.path":
			global.WakeHoldPath = val
		case "control.listen":
			global.ControlListen = normalizeListen(val)
		case "ui.disable":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid ui.disable: %w", err)
			}
			global.UIDisable = b
		case "log.level":
			global.LogLevel = val
		case "log.file":
			global.LogFile = val
		case "autostart":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid autostart: %w", err)
			}
			global.AutoStart = b
		default:
			// Ignore unknown keys for forward compatibility.
		}
	}
	return nil
}

func applyCLIOverrides(global *GlobalOptions, overrides CLIOverrides) {
	if overrides.ProbeInterval != nil {
		global.ProbeInterval = *overrides.ProbeInterval
	}
	if overrides.ProbeTimeout != nil {
		global.ProbeTimeout = *overrides.ProbeTimeout
	}
	if overrides.ProbeMethod != nil {
		global.ProbeMethod = *overrides.ProbeMethod
	}
	if overrides.WakeHold != nil {
		global.WakeHold = *overrides.WakeHold
	}
	if overrides.ControlListen != nil {
		global.ControlListen = normalizeListen(*overrides.ControlListen)
	}
	if overrides.UIDisable != nil {
		global.UIDisable = *overrides.UIDisable
	}
	if overrides.LogLevel != nil {
		global.LogLevel = *overrides.LogLevel
	}
	if overrides.LogFile != nil {
		global.LogFile = *overrides.LogFile
	}
	if overrides.AutoStart != nil {
		global.AutoStart = *overrides.AutoStart
	}
}

func parseProbeMethod(value string) (ProbeMethod, error) {
	switch ProbeMethod(value) {
	case ProbeMethodAuto, ProbeMethodICMP, ProbeMethodExec, ProbeMethodDNS:
		return ProbeMethod(value), nil
	default:
		return "", fmt.Errorf("invalid probe method: %q", value)
	}
}

// ParseProbeMethod validates a probe method name from the command line.
func ParseProbeMethod(value string) (ProbeMethod, error) {
	return parseProbeMethod(value)
}

func parseWakeHoldMode(value string) (WakeHoldMode, error) {
	switch WakeHoldMode(value) {
	case WakeHoldNone, WakeHoldInhibit, WakeHoldLockFile:
		return WakeHoldMode(value), nil
	default:
		return "", fmt.Errorf("invalid wakehold: %q", value)
	}
}

// ParseWakeHoldMode validates a wake hold mode name from the command line.
func ParseWakeHoldMode(value string) (WakeHoldMode, error) {
	return parseWakeHoldMode(value)
}

func normalizeListen(value string) string {
	if isDigits(value) {
		return ":" + value
	}
	return value
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
