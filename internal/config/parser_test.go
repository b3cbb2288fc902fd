package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "netwatch.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfigParsesTargetsAndGroups(t *testing.T) {
	configText := "" +
		"# netwatch: probe.interval=3s probe.timeout=1500ms backoff.initial=500ms backoff.max=4s ui.disable=true\n" +
		"google www.google.com\n" +
		"googleDNS 8.8.8.8 method=dns\n" +
		"---\n" +
		"kame 203.178.141.194 method=icmp\n"

	path := writeTempConfig(t, configText)
	parser := NetwatchParser{}

	cfg, err := parser.LoadConfig(path, CLIOverrides{})
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if len(cfg.Targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(cfg.Targets))
	}
	if cfg.Targets[0].Group != "" {
		t.Fatalf("expected empty group for first target, got %q", cfg.Targets[0].Group)
	}
	if cfg.Targets[2].Group != "group-1" {
		t.Fatalf("expected group-1 for third target, got %q", cfg.Targets[2].Group)
	}
	if cfg.Targets[1].Method != ProbeMethodDNS {
		t.Fatalf("expected dns method for googleDNS, got %q", cfg.Targets[1].Method)
	}

	if cfg.Global.ProbeInterval != 3*time.Second {
		t.Fatalf("expected probe.interval 3s, got %v", cfg.Global.ProbeInterval)
	}
	if cfg.Global.ProbeTimeout != 1500*time.Millisecond {
		t.Fatalf("expected probe.timeout 1500ms, got %v", cfg.Global.ProbeTimeout)
	}
	if cfg.Global.BackoffInitial != 500*time.Millisecond || cfg.Global.BackoffMax != 4*time.Second {
		t.Fatalf("unexpected backoff settings: %v/%v", cfg.Global.BackoffInitial, cfg.Global.BackoffMax)
	}
	if !cfg.Global.UIDisable {
		t.Fatalf("expected ui.disable true")
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := NetwatchParser{}.LoadConfig("", CLIOverrides{})
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	defaults := DefaultGlobalOptions()
	if cfg.Global != defaults {
		t.Fatalf("expected defaults, got %+v", cfg.Global)
	}
	if cfg.Global.ProbeInterval != 5*time.Second {
		t.Fatalf("expected 5s probe interval, got %v", cfg.Global.ProbeInterval)
	}
	if cfg.Global.BackoffInitial != time.Second || cfg.Global.BackoffMax != 10*time.Second {
		t.Fatalf("expected 1s..10s backoff, got %v..%v", cfg.Global.BackoffInitial, cfg.Global.BackoffMax)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Address != "www.google.com" {
		t.Fatalf("expected default google target, got %+v", cfg.Targets)
	}
}

func TestLoadConfigParsesNamedGroup(t *testing.T) {
	configText := "" +
		"resolver 8.8.8.8\n" +
		"--- DNS\n" +
		"public 1.1.1.1\n"

	path := writeTempConfig(t, configText)
	cfg, err := NetwatchParser{}.LoadConfig(path, CLIOverrides{})
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.Targets))
	}
	if cfg.Targets[1].Group != "DNS" {
		t.Fatalf("expected group DNS, got %q", cfg.Targets[1].Group)
	}
}

func TestLoadConfigParsesDirectiveWithoutComment(t *testing.T) {
	configText := "" +
		"netwatch: control.listen=9110 wakehold=lockfile wakehold.path=/tmp/nw.lock autostart=false\n" +
		"example 192.0.2.1\n"

	path := writeTempConfig(t, configText)
	cfg, err := NetwatchParser{}.LoadConfig(path, CLIOverrides{})
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Global.ControlListen != ":9110" {
		t.Fatalf("expected control.listen :9110, got %q", cfg.Global.ControlListen)
	}
	if cfg.Global.WakeHold != WakeHoldLockFile || cfg.Global.WakeHoldPath != "/tmp/nw.lock" {
		t.Fatalf("unexpected wakehold settings: %q %q", cfg.Global.WakeHold, cfg.Global.WakeHoldPath)
	}
	if cfg.Global.AutoStart {
		t.Fatalf("expected autostart false")
	}
}

func TestLoadConfigIgnoresComments(t *testing.T) {
	configText := "" +
		"# normal comment\n" +
		"\n" +
		"example 192.0.2.1\n"

	path := writeTempConfig(t, configText)
	cfg, err := NetwatchParser{}.LoadConfig(path, CLIOverrides{})
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if len(cfg.Targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(cfg.Targets))
	}
}

func TestLoadConfigRejectsInvalidTargetLine(t *testing.T) {
	path := writeTempConfig(t, "invalidline\n")
	if _, err := (NetwatchParser{}).LoadConfig(path, CLIOverrides{}); err == nil {
		t.Fatalf("expected error for invalid target line")
	}
}

func TestLoadConfigRejectsInvalidDirective(t *testing.T) {
	cases := []string{
		"# netwatch: probe.interval=notaduration\n",
		"# netwatch: probe.method=carrier-pigeon\n",
		"# netwatch: wakehold=forever\n",
		"# netwatch: ui.disable=maybe\n",
		"# netwatch: novalue\n",
	}
	for _, text := range cases {
		path := writeTempConfig(t, text+"example 192.0.2.1\n")
		if _, err := (NetwatchParser{}).LoadConfig(path, CLIOverrides{}); err == nil {
			t.Fatalf("expected error for directive %q", text)
		}
	}
}

func TestLoadConfigRejectsInvalidRanges(t *testing.T) {
	path := writeTempConfig(t, "# netwatch: backoff.initial=20s backoff.max=10s probe.timeout=0s\nexample 192.0.2.1\n")
	_, err := NetwatchParser{}.LoadConfig(path, CLIOverrides{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "backoff.max") || !strings.Contains(msg, "probe.timeout") {
		t.Fatalf("expected both validation failures reported, got %q", msg)
	}
}

func TestLoadConfigRejectsDuplicateTargets(t *testing.T) {
	path := writeTempConfig(t, "a 192.0.2.1\na 192.0.2.2\n")
	if _, err := (NetwatchParser{}).LoadConfig(path, CLIOverrides{}); err == nil {
		t.Fatalf("expected duplicate target error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := (NetwatchParser{}).LoadConfig(filepath.Join(t.TempDir(), "missing.conf"), CLIOverrides{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfigAppliesCLIOverrides(t *testing.T) {
	configText := "" +
		"# netwatch: probe.interval=2s probe.timeout=1500ms ui.disable=false control.listen=:9000\n" +
		"example 192.0.2.1\n"

	path := writeTempConfig(t, configText)

	interval := 7 * time.Second
	timeout := 500 * time.Millisecond
	method := ProbeMethodExec
	listen := "9200"
	noUI := true
	overrides := CLIOverrides{
		ProbeInterval: &interval,
		ProbeTimeout:  &timeout,
		ProbeMethod:   &method,
		ControlListen: &listen,
		UIDisable:     &noUI,
	}

	cfg, err := NetwatchParser{}.LoadConfig(path, overrides)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Global.ProbeInterval != interval {
		t.Fatalf("expected interval override %v, got %v", interval, cfg.Global.ProbeInterval)
	}
	if cfg.Global.ProbeTimeout != timeout {
		t.Fatalf("expected timeout override %v, got %v", timeout, cfg.Global.ProbeTimeout)
	}
	if cfg.Global.ProbeMethod != ProbeMethodExec {
		t.Fatalf("expected method override exec, got %q", cfg.Global.ProbeMethod)
	}
	if cfg.Global.ControlListen != ":9200" {
		t.Fatalf("expected listen override :9200, got %q", cfg.Global.ControlListen)
	}
	if !cfg.Global.UIDisable {
		t.Fatalf("expected ui disabled by override")
	}
}

func TestParseTargetLineOptions(t *testing.T) {
	target, err := NetwatchParser{}.ParseTargetLine("relay1 192.0.2.10 method=exec note=lab", "group-1")
	if err != nil {
		t.Fatalf("ParseTargetLine error: %v", err)
	}
	if target.Options["note"] != "lab" || target.Method != ProbeMethodExec {
		t.Fatalf("expected options parsed, got %+v", target)
	}
	if _, err := (NetwatchParser{}).ParseTargetLine("relay1 192.0.2.10 method=bogus", ""); err == nil {
		t.Fatalf("expected error for unknown target method")
	}
}

func TestEffectiveMethod(t *testing.T) {
	g := DefaultGlobalOptions()
	if got := g.EffectiveMethod(TargetConfig{}); got != ProbeMethodAuto {
		t.Fatalf("expected global method, got %q", got)
	}
	if got := g.EffectiveMethod(TargetConfig{Method: ProbeMethodDNS}); got != ProbeMethodDNS {
		t.Fatalf("expected target method, got %q", got)
	}
}

func TestLoadConfigLockFileNeedsPath(t *testing.T) {
	path := writeTempConfig(t, "# netwatch: wakehold=lockfile\nexample 192.0.2.1\n")
	if _, err := (NetwatchParser{}).LoadConfig(path, CLIOverrides{}); err == nil {
		t.Fatalf("expected error for lockfile without path")
	}

	path = writeTempConfig(t, "# netwatch: wakehold=lockfile wakehold.path=/tmp/netwatch.lock\nexample 192.0.2.1\n")
	cfg, err := (NetwatchParser{}).LoadConfig(path, CLIOverrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Global.WakeHoldPath != "/tmp/netwatch.lock" {
		t.Fatalf("expected wakehold.path applied, got %q", cfg.Global.WakeHoldPath)
	}
}
