package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNSMethod asks the target resolver for an A record. Any well-formed
// NOERROR or NXDOMAIN answer proves the resolver is reachable.
type DNSMethod struct {
	name string
}

// NewDNSMethod returns a probe that queries name on the target resolver.
func NewDNSMethod(name string) *DNSMethod {
	return &DNSMethod{name: dns.Fqdn(name)}
}

// Probe sends one recursive query over UDP to addr (port 53 unless given).
func (p *DNSMethod) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Error: err}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(p.name, dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: timeout}
	queryCtx, cancel := context.WithDeadline(ctx, effectiveDeadline(ctx, timeout))
	defer cancel()

	resp, rtt, err := client.ExchangeContext(queryCtx, msg, resolverAddr(addr))
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("dns query %s: %w", p.name, err)}
	}
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return Result{Success: true, RTT: rtt}
	default:
		return Result{Success: false, Error: fmt.Errorf("dns query %s: rcode %s", p.name, dns.RcodeToString[resp.Rcode])}
	}
}

func resolverAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, "53")
}
