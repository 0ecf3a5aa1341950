package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
	"go.uber.org/zap"
)

var errRejectedToken = errors.New("token rejected")

// maxRecorded bounds the deliveries LogProvider keeps; older ones are dropped
const maxRecorded = 1000

// Delivery is one message accepted by LogProvider
type Delivery struct {
	Device  model.UserDevice
	Message model.PushMessage
}

// LogProvider logs messages instead of pushing them. It is the development
// provider and records every delivery for inspection.
type LogProvider struct {
	mu        sync.Mutex
	sent      []Delivery
	rejected  map[string]bool
	transient map[string]error
	log       *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogProvider{
		rejected:  make(map[string]bool),
		transient: make(map[string]error),
		log:       log,
	}
}

func (p *LogProvider) Name() string {
	return "log"
}

// RejectToken makes later deliveries to token fail as invalid
func (p *LogProvider) RejectToken(token string) {
	p.mu.Lock()
	p.rejected[token] = true
	p.mu.Unlock()
}

// FailToken makes later deliveries to token fail transiently with err
func (p *LogProvider) FailToken(token string, err error) {
	p.mu.Lock()
	p.transient[token] = err
	p.mu.Unlock()
}

func (p *LogProvider) Deliver(ctx context.Context, device model.UserDevice, msg model.PushMessage) error {
	if err := ctx.Err(); err != nil {
		return &model.DeliveryError{DeviceID: device.DeviceID, Platform: device.Platform, Kind: model.DeliveryTransient, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rejected[device.PushToken] {
		return &model.DeliveryError{DeviceID: device.DeviceID, Platform: device.Platform, Kind: model.DeliveryInvalidToken, Err: errRejectedToken}
	}
	if err := p.transient[device.PushToken]; err != nil {
		return &model.DeliveryError{DeviceID: device.DeviceID, Platform: device.Platform, Kind: model.DeliveryTransient, Err: err}
	}

	if len(p.sent) == maxRecorded {
		p.sent = append(p.sent[:0], p.sent[1:]...)
	}
	p.sent = append(p.sent, Delivery{Device: device, Message: msg})
	p.log.Info("push notification",
		zap.String("user_id", device.UserID),
		zap.String("device_id", device.DeviceID),
		zap.String("platform", string(device.Platform)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

// Sent returns a copy of the recorded deliveries, oldest first
func (p *LogProvider) Sent() []Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Delivery, len(p.sent))
	copy(out, p.sent)
	return out
}
