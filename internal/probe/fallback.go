package probe

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"
)

// FallbackMethod tries each method in order, moving on only when a method
// could not run because of missing privileges.
type FallbackMethod struct {
	chain []Method
}

// NewFallbackMethod chains methods from most to least preferred.
func NewFallbackMethod(chain ...Method) *FallbackMethod {
	return &FallbackMethod{chain: chain}
}

// Probe returns the first result that is not a permission failure.
func (p *FallbackMethod) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	result := Result{Success: false, Error: errors.New("no probe method configured")}
	for _, method := range p.chain {
		result = method.Probe(ctx, addr, timeout)
		if result.Success || !isPermissionError(result.Error) {
			return result
		}
	}
	return result
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied")
}
