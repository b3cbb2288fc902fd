package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Validate rejects settings the monitor cannot run with.
func Validate(cfg *Config) error {
	g := cfg.Global
	var errs []error
	if g.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe.interval must be positive, got %v", g.ProbeInterval))
	}
	if g.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probe.timeout must be positive, got %v", g.ProbeTimeout))
	}
	if g.BackoffInitial <= 0 {
		errs = append(errs, fmt.Errorf("backoff.initial must be positive, got %v", g.BackoffInitial))
	}
	if g.BackoffMax < g.BackoffInitial {
		errs = append(errs, fmt.Errorf("backoff.max (%v) must not be below backoff.initial (%v)", g.BackoffMax, g.BackoffInitial))
	}
	if g.SignalPoll <= 0 {
		errs = append(errs, fmt.Errorf("signal.poll must be positive, got %v", g.SignalPoll))
	}
	if _, err := parseProbeMethod(string(g.ProbeMethod)); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseWakeHoldMode(string(g.WakeHold)); err != nil {
		errs = append(errs, err)
	}
	if g.WakeHold == WakeHoldLockFile && g.WakeHoldPath == "" {
		errs = append(errs, errors.New("wakehold.path is required for the lockfile wakehold"))
	}
	if g.ProbeMethod == ProbeMethodDNS && g.DNSName == "" {
		errs = append(errs, errors.New("probe.dns_name is required for the dns probe method"))
	}
	seen := make(map[string]struct{}, len(cfg.Targets))
	for _, tgt := range cfg.Targets {
		if _, dup := seen[tgt.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate target name: %q", tgt.Name))
		}
		seen[tgt.Name] = struct{}{}
	}
	return multierr.Combine(errs...)
}

// EffectiveMethod is the method used for target, falling back to the global default.
func (g GlobalOptions) EffectiveMethod(target TargetConfig) ProbeMethod {
	if target.Method != "" {
		return target.Method
	}
	return g.ProbeMethod
}
