package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gate decides whether a notification category may reach a user
type Gate interface {
	IsAllowed(ctx context.Context, userID string, category model.NotificationCategory) bool
}

// Sender fans a message out to a user's devices
type Sender interface {
	Send(ctx context.Context, userID string, msg model.PushMessage) model.DeliveryReport
}

// AlertPublisher streams triggered alerts to connected clients
type AlertPublisher interface {
	PublishTriggered(ctx context.Context, t model.TriggeredAlert) error
}

type TransactionStatus string

const (
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionFailed    TransactionStatus = "failed"
)

// NotificationService formats typed notifications, applies the preference
// gate and hands them to the dispatcher. It is the evaluator's trigger handler.
type NotificationService struct {
	gate      Gate
	sender    Sender
	history   *History
	publisher AlertPublisher
	now       func() time.Time
	log       *zap.Logger
}

func NewNotificationService(gate Gate, sender Sender, history *History, log *zap.Logger) *NotificationService {
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		gate:    gate,
		sender:  sender,
		history: history,
		now:     time.Now,
		log:     log,
	}
}

// SetPublisher attaches the live event stream. It must be called before the
// scheduler starts.
func (s *NotificationService) SetPublisher(p AlertPublisher) {
	s.publisher = p
}

// HandleTrigger publishes the event and sends the price alert notification
func (s *NotificationService) HandleTrigger(ctx context.Context, t model.TriggeredAlert) error {
	if s.publisher != nil {
		if err := s.publisher.PublishTriggered(ctx, t); err != nil {
			s.log.Warn("publish triggered alert failed",
				zap.String("alert_id", t.Alert.ID),
				zap.Error(err),
			)
		}
	}
	s.SendPriceAlert(ctx, &t.Alert, t.Price)
	return nil
}

func (s *NotificationService) SendPriceAlert(ctx context.Context, alert *model.PriceAlert, price float64) model.DeliveryReport {
	return s.dispatch(ctx, alert.UserID, model.CategoryPriceAlert, model.PushMessage{
		Title: fmt.Sprintf("%s Price Alert", alert.TokenSymbol),
		Body:  FormatPriceAlert(alert, price),
		Data: map[string]string{
			"type":         string(model.CategoryPriceAlert),
			"alertId":      alert.ID,
			"tokenSymbol":  alert.TokenSymbol,
			"currentPrice": strconv.FormatFloat(price, 'f', -1, 64),
			"targetPrice":  strconv.FormatFloat(alert.TargetPrice, 'f', -1, 64),
			"condition":    string(alert.Condition),
		},
		Priority: model.PriorityHigh,
	})
}

func (s *NotificationService) SendTransaction(ctx context.Context, userID, txHash string, status TransactionStatus, network string) model.DeliveryReport {
	body := "Your transaction has been confirmed!"
	if status == TransactionFailed {
		body = "Your transaction has failed. Please try again."
	}
	return s.dispatch(ctx, userID, model.CategoryTransaction, model.PushMessage{
		Title: "Transaction Update",
		Body:  body,
		Data: map[string]string{
			"type":            string(model.CategoryTransaction),
			"transactionHash": txHash,
			"status":          string(status),
			"network":         network,
		},
		Priority: model.PriorityHigh,
	})
}

// SendPortfolioUpdate reports a fractional change (0.05 is 5%) over timeframe
func (s *NotificationService) SendPortfolioUpdate(ctx context.Context, userID string, change float64, timeframe string) model.DeliveryReport {
	direction := "up"
	if change < 0 {
		direction = "down"
	}
	pct := decimal.NewFromFloat(math.Abs(change)).Mul(decimal.NewFromInt(100)).StringFixed(2)

	return s.dispatch(ctx, userID, model.CategoryPortfolioUpdate, model.PushMessage{
		Title: "Portfolio Update",
		Body:  fmt.Sprintf("Your portfolio is %s %s%% over the last %s", direction, pct, timeframe),
		Data: map[string]string{
			"type":      string(model.CategoryPortfolioUpdate),
			"change":    strconv.FormatFloat(change, 'f', -1, 64),
			"timeframe": timeframe,
		},
	})
}

func (s *NotificationService) SendMarketNews(ctx context.Context, userID, headline, summary string) model.DeliveryReport {
	return s.dispatch(ctx, userID, model.CategoryMarketNews, model.PushMessage{
		Title: headline,
		Body:  summary,
		Data:  map[string]string{"type": string(model.CategoryMarketNews)},
	})
}

func (s *NotificationService) SendTest(ctx context.Context, userID string) model.DeliveryReport {
	return s.dispatch(ctx, userID, model.CategoryTest, model.PushMessage{
		Title: "Test Notification",
		Body:  "This is a test notification from your DeFi Wallet app!",
		Data:  map[string]string{"type": string(model.CategoryTest)},
	})
}

// Send delivers a caller-built message. Untagged messages are gated like
// test notifications.
func (s *NotificationService) Send(ctx context.Context, userID string, msg model.PushMessage) model.DeliveryReport {
	category := msg.Category()
	if category == "" {
		category = model.CategoryTest
	}
	return s.dispatch(ctx, userID, category, msg)
}

func (s *NotificationService) History(userID string, limit int) []model.NotificationRecord {
	return s.history.List(userID, limit)
}

func (s *NotificationService) dispatch(ctx context.Context, userID string, category model.NotificationCategory, msg model.PushMessage) model.DeliveryReport {
	if !s.gate.IsAllowed(ctx, userID, category) {
		s.log.Debug("notification blocked by preferences",
			zap.String("user_id", userID),
			zap.String("category", string(category)),
		)
		return model.DeliveryReport{UserID: userID, Gated: true}
	}

	report := s.sender.Send(ctx, userID, msg)

	s.history.Add(userID, model.NotificationRecord{
		ID:      uuid.NewString(),
		Type:    category,
		Title:   msg.Title,
		Message: msg.Body,
		SentAt:  s.now().UTC(),
		Data:    msg.Data,
		Devices: report.Delivered,
	})
	return report
}

// FormatPriceAlert renders e.g.
// "BTC has risen above $45000.00 USD. Current price: $45500.00"
func FormatPriceAlert(alert *model.PriceAlert, price float64) string {
	direction := "risen above"
	if alert.Condition == model.ConditionBelow {
		direction = "fallen below"
	}
	currency := alert.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return fmt.Sprintf("%s has %s $%s %s. Current price: $%s",
		alert.TokenSymbol,
		direction,
		decimal.NewFromFloat(alert.TargetPrice).StringFixed(2),
		currency,
		decimal.NewFromFloat(price).StringFixed(2),
	)
}
