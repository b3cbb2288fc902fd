package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const echoData = "netwatch"

// ICMPMethod sends ICMP echo requests. Privileged mode uses raw sockets;
// unprivileged mode uses datagram ICMP sockets (Linux ping_group_range, macOS).
type ICMPMethod struct {
	id         int
	seq        uint32
	privileged bool
}

// NewICMPMethod initializes a probe with a process-scoped echo identifier.
func NewICMPMethod(privileged bool) *ICMPMethod {
	return &ICMPMethod{id: os.Getpid() & 0xffff, privileged: privileged}
}

// Probe sends one ICMP echo request and waits for the matching reply.
func (p *ICMPMethod) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Error: err}
	}

	ip, err := resolveIP(ctx, addr)
	if err != nil {
		return Result{Success: false, Error: err}
	}

	settings := icmpSettings(ip, p.privileged)
	conn, err := icmp.ListenPacket(settings.network, "")
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("open %s socket: %w", settings.network, err)}
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	seq := int(atomic.AddUint32(&p.seq, 1) & 0xffff)
	msg := icmp.Message{
		Type: settings.requestType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte(echoData),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return Result{Success: false, Error: err}
	}

	if err := conn.SetDeadline(effectiveDeadline(ctx, timeout)); err != nil {
		return Result{Success: false, Error: err}
	}

	var dst net.Addr = &net.IPAddr{IP: ip}
	if !p.privileged {
		dst = &net.UDPAddr{IP: ip}
	}

	start := time.Now()
	if _, err := conn.WriteTo(payload, dst); err != nil {
		return Result{Success: false, Error: err}
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return Result{Success: false, Error: err}
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return Result{Success: false, Error: fmt.Errorf("probe timeout: %w", err)}
			}
			return Result{Success: false, Error: err}
		}
		if peer == nil {
			continue
		}

		reply, err := icmp.ParseMessage(settings.protocol, buf[:n])
		if err != nil || reply.Type != settings.replyType {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok || body.Seq != seq {
			continue
		}
		// Datagram sockets rewrite the echo ID to the local port.
		if p.privileged && body.ID != p.id {
			continue
		}

		return Result{Success: true, RTT: time.Since(start)}
	}
}

func resolveIP(ctx context.Context, addr string) (net.IP, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty probe address")
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("invalid IP address: %s", addr)
	}
	return ips[0], nil
}

type socketSettings struct {
	network     string
	protocol    int
	requestType icmp.Type
	replyType   icmp.Type
}

func icmpSettings(ip net.IP, privileged bool) socketSettings {
	if ip.To4() != nil {
		network := "ip4:icmp"
		if !privileged {
			network = "udp4"
		}
		return socketSettings{network, ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply}
	}
	network := "ip6:ipv6-icmp"
	if !privileged {
		network = "udp6"
	}
	return socketSettings{network, ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply}
}

func effectiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
