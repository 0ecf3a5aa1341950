package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/quocanhngo/pricewatch/internal/model"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMProvider pushes through Firebase Cloud Messaging. FCM relays to APNs
// for iOS devices, so one provider covers both platforms.
type FCMProvider struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCMProvider creates an FCM provider from a service account file
func NewFCMProvider(ctx context.Context, credentialsFile string, log *zap.Logger) (*FCMProvider, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("firebase credentials file not set")
	}
	if log == nil {
		log = zap.NewNop()
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Info("firebase FCM initialized")
	return &FCMProvider{client: client, log: log}, nil
}

func (p *FCMProvider) Name() string {
	return "fcm"
}

// Deliver sends msg to a single device token
func (p *FCMProvider) Deliver(ctx context.Context, device model.UserDevice, msg model.PushMessage) error {
	id, err := p.client.Send(ctx, buildMessage(device.PushToken, msg))
	if err != nil {
		kind := model.DeliveryTransient
		if deadToken(err) {
			kind = model.DeliveryInvalidToken
		}
		return &model.DeliveryError{
			DeviceID: device.DeviceID,
			Platform: device.Platform,
			Kind:     kind,
			Err:      err,
		}
	}

	p.log.Debug("fcm message sent",
		zap.String("message_id", id),
		zap.String("device_id", device.DeviceID),
	)
	return nil
}

// deadToken reports whether err condemns the device token. INVALID_ARGUMENT
// is left out because FCM also uses it for malformed message payloads.
func deadToken(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

func buildMessage(token string, msg model.PushMessage) *messaging.Message {
	androidPriority := "normal"
	if msg.Priority == model.PriorityHigh {
		androidPriority = "high"
	}
	sound := msg.Sound
	if sound == "" {
		sound = "default"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound: sound,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: sound,
				},
			},
		},
	}
}
