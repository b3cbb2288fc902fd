package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/doridoridoriand/netwatch/internal/config"
)

// Result captures a single probe result.
type Result struct {
	RTT     time.Duration
	Success bool
	Error   error
}

// Method sends one probe to addr and reports whether it was answered.
type Method interface {
	Probe(ctx context.Context, addr string, timeout time.Duration) Result
}

// NewMethod builds the probe method for a configured method name.
func NewMethod(method config.ProbeMethod, dnsName string) (Method, error) {
	switch method {
	case config.ProbeMethodICMP:
		return NewICMPMethod(true), nil
	case config.ProbeMethodExec:
		return NewExecMethod(), nil
	case config.ProbeMethodDNS:
		return NewDNSMethod(dnsName), nil
	case config.ProbeMethodAuto, "":
		return NewFallbackMethod(NewICMPMethod(true), NewICMPMethod(false), NewExecMethod()), nil
	default:
		return nil, fmt.Errorf("unknown probe method %q", method)
	}
}
