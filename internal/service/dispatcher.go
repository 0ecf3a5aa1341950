package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/quocanhngo/pricewatch/internal/metrics"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/pkg/notification"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDeliveryTimeout = 10 * time.Second
	bulkConcurrency        = 16
)

// DeviceRegistry is the part of the device registry the dispatcher needs
type DeviceRegistry interface {
	ActiveDevices(ctx context.Context, userID string) ([]model.UserDevice, error)
	Deactivate(ctx context.Context, userID, deviceID, pushToken string) (bool, error)
}

// Dispatcher fans a message out to every active device of a user
type Dispatcher struct {
	devices  DeviceRegistry
	provider notification.Provider
	timeout  time.Duration
	log      *zap.Logger
}

func NewDispatcher(devices DeviceRegistry, provider notification.Provider, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		devices:  devices,
		provider: provider,
		timeout:  timeout,
		log:      log,
	}
}

// Send attempts delivery to each active device independently. Devices whose
// token is rejected are deactivated; other failures are logged. Send never
// fails: the report carries the outcome.
func (d *Dispatcher) Send(ctx context.Context, userID string, msg model.PushMessage) model.DeliveryReport {
	ctx, span := otel.Tracer("pricewatch").Start(ctx, "dispatcher.send")
	defer span.End()

	report := model.DeliveryReport{UserID: userID}

	devices, err := d.devices.ActiveDevices(ctx, userID)
	if err != nil {
		d.log.Error("load devices failed", zap.String("user_id", userID), zap.Error(err))
		span.RecordError(err)
		return report
	}
	if len(devices) == 0 {
		d.log.Debug("no active devices", zap.String("user_id", userID))
		return report
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, device := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			delivered, deactivated := d.deliver(ctx, device, msg)

			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			if delivered {
				report.Delivered++
			} else {
				report.Failed++
			}
			if deactivated {
				report.Deactivated = append(report.Deactivated, device.DeviceID)
			}
		}()
	}
	wg.Wait()

	sort.Strings(report.Deactivated)
	span.SetAttributes(
		attribute.Int("attempted", report.Attempted),
		attribute.Int("delivered", report.Delivered),
	)
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, device model.UserDevice, msg model.PushMessage) (delivered, deactivated bool) {
	deliverCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.provider.Deliver(deliverCtx, device, msg)
	if err == nil {
		metrics.Deliveries.WithLabelValues(string(device.Platform), "delivered").Inc()
		return true, false
	}

	if !errors.Is(err, model.ErrInvalidToken) {
		metrics.Deliveries.WithLabelValues(string(device.Platform), "failed").Inc()
		d.log.Warn("push delivery failed",
			zap.String("user_id", device.UserID),
			zap.String("device_id", device.DeviceID),
			zap.String("platform", string(device.Platform)),
			zap.Error(err),
		)
		return false, false
	}

	metrics.Deliveries.WithLabelValues(string(device.Platform), "invalid_token").Inc()
	// the caller's context may already be done; deactivation must still land
	ok, derr := d.devices.Deactivate(context.WithoutCancel(ctx), device.UserID, device.DeviceID, device.PushToken)
	if derr != nil {
		d.log.Error("deactivate device failed",
			zap.String("user_id", device.UserID),
			zap.String("device_id", device.DeviceID),
			zap.Error(derr),
		)
		return false, false
	}
	if ok {
		metrics.DevicesDeactivated.Inc()
		d.log.Info("device deactivated after invalid token",
			zap.String("user_id", device.UserID),
			zap.String("device_id", device.DeviceID),
			zap.String("platform", string(device.Platform)),
		)
	}
	return false, ok
}

// SendBulk runs Send for each user. One user's failure never affects the
// others. Reports come back in input order.
func (d *Dispatcher) SendBulk(ctx context.Context, userIDs []string, msg model.PushMessage) []model.DeliveryReport {
	reports := make([]model.DeliveryReport, len(userIDs))

	g := new(errgroup.Group)
	g.SetLimit(bulkConcurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			reports[i] = d.Send(ctx, userID, msg)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
