package notification

import (
	"context"
	"fmt"

	"github.com/quocanhngo/pricewatch/internal/model"
)

// Provider delivers one message to one device. Implementations return a
// *model.DeliveryError so callers can tell dead tokens from transient
// failures.
type Provider interface {
	Name() string
	Deliver(ctx context.Context, device model.UserDevice, msg model.PushMessage) error
}

// Router picks a provider by device platform
type Router struct {
	byPlatform map[model.Platform]Provider
	fallback   Provider
}

// NewRouter sends every platform to fallback unless overridden with Route
func NewRouter(fallback Provider) *Router {
	return &Router{
		byPlatform: make(map[model.Platform]Provider),
		fallback:   fallback,
	}
}

// Route registers p for platform
func (r *Router) Route(platform model.Platform, p Provider) *Router {
	r.byPlatform[platform] = p
	return r
}

func (r *Router) Name() string {
	return "router"
}

func (r *Router) Deliver(ctx context.Context, device model.UserDevice, msg model.PushMessage) error {
	p, ok := r.byPlatform[device.Platform]
	if !ok {
		p = r.fallback
	}
	if p == nil {
		return &model.DeliveryError{
			DeviceID: device.DeviceID,
			Platform: device.Platform,
			Kind:     model.DeliveryTransient,
			Err:      fmt.Errorf("no provider for platform %q", device.Platform),
		}
	}
	return p.Deliver(ctx, device, msg)
}
