package discovery

import (
	"context"
	"time"
)

// Browser finds fragudp servers via mDNS.
type Browser interface {
	// Browse emits each server once per instance name until ctx is done.
	Browse(ctx context.Context) (<-chan *ServerService, error)

	// FindByName returns the first server advertised under instance.
	FindByName(ctx context.Context, instance string) (*ServerService, error)

	// Stop cancels active browse operations.
	Stop()
}

// BrowserConfig configures a browser.
type BrowserConfig struct {
	// Timeout bounds FindByName.
	Timeout time.Duration

	// Interface restricts browsing to a single network interface.
	// Empty means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Timeout: BrowseTimeout,
	}
}

// FilterByMTU returns the servers advertising the given MTU.
func FilterByMTU(services []*ServerService, mtu int) []*ServerService {
	var result []*ServerService
	for _, svc := range services {
		if svc.MTU == mtu {
			result = append(result, svc)
		}
	}
	return result
}

// Collect drains ch until it closes or ctx is done.
func Collect(ctx context.Context, ch <-chan *ServerService) []*ServerService {
	var result []*ServerService
	for {
		select {
		case svc, ok := <-ch:
			if !ok {
				return result
			}
			result = append(result, svc)
		case <-ctx.Done():
			return result
		}
	}
}
