package cli

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/doridoridoriand/netwatch/internal/config"
)

// OptionalDuration records a duration flag and whether it was set.
type OptionalDuration struct {
	value time.Duration
	set   bool
}

func (o *OptionalDuration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalDuration) String() string {
	if !o.set {
		return ""
	}
	return o.value.String()
}

func (o *OptionalDuration) Type() string { return "duration" }

func (o *OptionalDuration) Value() (time.Duration, bool) {
	return o.value, o.set
}

func (o *OptionalDuration) ptr() *time.Duration {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// OptionalString records a string flag and whether it was set.
type OptionalString struct {
	value string
	set   bool
}

func (o *OptionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *OptionalString) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalString) Type() string { return "string" }

func (o *OptionalString) Value() (string, bool) {
	return o.value, o.set
}

func (o *OptionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// OptionalBool records a bool flag and whether it was set.
type OptionalBool struct {
	value bool
	set   bool
}

func (o *OptionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalBool) String() string {
	if !o.set {
		return ""
	}
	return strconv.FormatBool(o.value)
}

func (o *OptionalBool) Type() string { return "bool" }

func (o *OptionalBool) IsBoolFlag() bool {
	return true
}

func (o *OptionalBool) Value() (bool, bool) {
	return o.value, o.set
}

func (o *OptionalBool) ptr() *bool {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// OptionalProbeMethod records a validated probe method flag.
type OptionalProbeMethod struct {
	value config.ProbeMethod
	set   bool
}

func (o *OptionalProbeMethod) Set(s string) error {
	v, err := config.ParseProbeMethod(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalProbeMethod) String() string {
	if !o.set {
		return ""
	}
	return string(o.value)
}

func (o *OptionalProbeMethod) Type() string { return "method" }

func (o *OptionalProbeMethod) Value() (config.ProbeMethod, bool) {
	return o.value, o.set
}

// OptionalWakeHold records a validated wake hold mode flag.
type OptionalWakeHold struct {
	value config.WakeHoldMode
	set   bool
}

func (o *OptionalWakeHold) Set(s string) error {
	v, err := config.ParseWakeHoldMode(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalWakeHold) String() string {
	if !o.set {
		return ""
	}
	return string(o.value)
}

func (o *OptionalWakeHold) Type() string { return "mode" }

func (o *OptionalWakeHold) Value() (config.WakeHoldMode, bool) {
	return o.value, o.set
}

// Flags are the command-line overrides of config file values.
type Flags struct {
	Interval  OptionalDuration
	Timeout   OptionalDuration
	Method    OptionalProbeMethod
	WakeHold  OptionalWakeHold
	Listen    OptionalString
	NoUI      OptionalBool
	LogLevel  OptionalString
	LogFile   OptionalString
	AutoStart OptionalBool
}

// Register adds every flag to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.VarP(&f.Interval, "interval", "i", "periodic probe interval (e.g. 5s)")
	fs.VarP(&f.Timeout, "timeout", "t", "per-probe timeout (e.g. 2s)")
	fs.VarP(&f.Method, "method", "m", "probe method: auto, icmp, exec, dns")
	fs.Var(&f.WakeHold, "wakehold", "wake hold while monitoring: none, inhibit, lockfile")
	fs.Var(&f.Listen, "listen", "control API listen address (e.g. :9100)")
	fs.Var(&f.NoUI, "no-ui", "disable the terminal UI and log status changes instead")
	fs.Var(&f.LogLevel, "log-level", "log level: debug, info, warn, error")
	fs.Var(&f.LogFile, "log-file", "write logs to this file instead of stderr")
	fs.Var(&f.AutoStart, "autostart", "start monitoring immediately")
	for _, name := range []string{"no-ui", "autostart"} {
		fs.Lookup(name).NoOptDefVal = "true"
	}
}

// Overrides converts the set flags into config overrides.
func (f *Flags) Overrides() config.CLIOverrides {
	overrides := config.CLIOverrides{
		ProbeInterval: f.Interval.ptr(),
		ProbeTimeout:  f.Timeout.ptr(),
		ControlListen: f.Listen.ptr(),
		UIDisable:     f.NoUI.ptr(),
		LogLevel:      f.LogLevel.ptr(),
		LogFile:       f.LogFile.ptr(),
		AutoStart:     f.AutoStart.ptr(),
	}
	if v, ok := f.Method.Value(); ok {
		overrides.ProbeMethod = &v
	}
	if v, ok := f.WakeHold.Value(); ok {
		overrides.WakeHold = &v
	}
	return overrides
}
