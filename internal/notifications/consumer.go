package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/logger"
	"github.com/moviegate/moviegate-backend/pkg/mailer"
	"github.com/moviegate/moviegate-backend/pkg/outbox"
	"github.com/moviegate/moviegate-backend/pkg/outbox/idempotency"
	"github.com/moviegate/moviegate-backend/pkg/outbox/payloads"
)

const dispatcherConsumer = "notification-dispatcher"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns domain events into in-app notifications and transactional
// email. Each event is processed at most once per the idempotency manager;
// failures release the idempotency key and nack so the message redelivers.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	sender       mailer.Sender
	baseURL      string
	logg         *logger.Logger
}

// NewConsumer builds the notification dispatcher.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, sender mailer.Sender, baseURL string, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		sender:       sender,
		baseURL:      baseURL,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, dispatcherConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.dispatch(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification dispatch failed", err)
		_ = c.idempotency.Delete(ctx, dispatcherConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) dispatch(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventUserRegistered:
		return dispatchAs(c, ctx, data, logCtx, c.handleUserRegistered)
	case enums.EventUserActivated:
		return dispatchAs(c, ctx, data, logCtx, c.handleUserActivated)
	case enums.EventPasswordResetRequested:
		return dispatchAs(c, ctx, data, logCtx, c.handlePasswordResetRequested)
	case enums.EventPasswordResetCompleted:
		return dispatchAs(c, ctx, data, logCtx, c.handlePasswordResetCompleted)
	case enums.EventOrderPlaced:
		return dispatchAs(c, ctx, data, logCtx, c.handleOrderPlaced)
	case enums.EventOrderPaid:
		return dispatchAs(c, ctx, data, logCtx, c.handleOrderPaid)
	case enums.EventOrderCanceled:
		return dispatchAs(c, ctx, data, logCtx, c.handleOrderCanceled)
	case enums.EventPaymentFailed:
		return dispatchAs(c, ctx, data, logCtx, c.handlePaymentFailed)
	}
	return nil
}

// dispatchAs decodes the payload and runs the typed handler. Handlers return
// the notification row to persist plus the email to send; either may be nil.
func dispatchAs[T any](c *Consumer, ctx context.Context, data json.RawMessage, logCtx context.Context, handler func(payload T) (*models.Notification, *mailer.Message, error)) error {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	notification, email, err := handler(payload)
	if err != nil {
		return err
	}
	if notification != nil {
		if err := c.repo.Create(ctx, notification); err != nil {
			return fmt.Errorf("persist notification: %w", err)
		}
	}
	if email != nil {
		if err := c.sender.Send(ctx, *email); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}
	c.logg.Info(logCtx, "event dispatched")
	return nil
}

func (c *Consumer) handleUserRegistered(payload payloads.UserRegisteredEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.Email == "" || payload.ActivationToken == "" {
		return nil, nil, fmt.Errorf("incomplete registration payload")
	}
	link := fmt.Sprintf("%s/account/activate?token=%s", c.baseURL, payload.ActivationToken)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeAccountActivation,
		Title:   "Activate your account",
		Message: "Confirm your email address to start buying movies.",
		Link:    stringPtr("/account/activate"),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Activate your MovieGate account",
		HTML: fmt.Sprintf(
			"<p>Welcome to MovieGate!</p><p><a href=%q>Activate your account</a> before %s.</p>",
			link, payload.ExpiresAt.Format("Jan 2, 2006 15:04 MST")),
		Text: fmt.Sprintf("Welcome to MovieGate! Activate your account: %s (expires %s)",
			link, payload.ExpiresAt.Format("Jan 2, 2006 15:04 MST")),
	}
	return notification, email, nil
}

func (c *Consumer) handleUserActivated(payload payloads.UserActivatedEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.Email == "" {
		return nil, nil, fmt.Errorf("incomplete activation payload")
	}
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeAccountActivated,
		Title:   "Account activated",
		Message: "Your account is active. Enjoy the catalog!",
		Link:    stringPtr("/movies"),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Your MovieGate account is active",
		HTML:    "<p>Your account has been activated. Browse the catalog and start watching.</p>",
		Text:    "Your account has been activated. Browse the catalog and start watching.",
	}
	return notification, email, nil
}

func (c *Consumer) handlePasswordResetRequested(payload payloads.PasswordResetRequestedEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.Email == "" || payload.ResetToken == "" {
		return nil, nil, fmt.Errorf("incomplete reset payload")
	}
	link := fmt.Sprintf("%s/account/password-reset?token=%s", c.baseURL, payload.ResetToken)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePasswordReset,
		Title:   "Password reset requested",
		Message: "A password reset was requested for your account. If this was not you, ignore the email.",
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Reset your MovieGate password",
		HTML: fmt.Sprintf(
			"<p><a href=%q>Reset your password</a>. The link expires at %s.</p>",
			link, payload.ExpiresAt.Format("Jan 2, 2006 15:04 MST")),
		Text: fmt.Sprintf("Reset your password: %s (expires %s)",
			link, payload.ExpiresAt.Format("Jan 2, 2006 15:04 MST")),
	}
	return notification, email, nil
}

func (c *Consumer) handlePasswordResetCompleted(payload payloads.PasswordResetCompletedEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.Email == "" {
		return nil, nil, fmt.Errorf("incomplete reset payload")
	}
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePasswordReset,
		Title:   "Password changed",
		Message: "Your password was changed. Contact support if you did not do this.",
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Your MovieGate password was changed",
		HTML:    "<p>Your password was changed. If this was not you, contact support immediately.</p>",
		Text:    "Your password was changed. If this was not you, contact support immediately.",
	}
	return notification, email, nil
}

func (c *Consumer) handleOrderPlaced(payload payloads.OrderPlacedEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.OrderID == uuid.Nil {
		return nil, nil, fmt.Errorf("incomplete order payload")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID: payload.UserID,
		Type:   enums.NotificationTypeOrderPlaced,
		Title:  "Order placed",
		Message: fmt.Sprintf("Your order for %d movie(s) totaling $%s is awaiting payment.",
			payload.ItemCount, payload.TotalAmount.StringFixed(2)),
		Link: stringPtr(link),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Your MovieGate order has been placed",
		HTML: fmt.Sprintf("<p>Order <strong>%s</strong> for %d movie(s), total $%s, is awaiting payment.</p>",
			payload.OrderID, payload.ItemCount, payload.TotalAmount.StringFixed(2)),
		Text: fmt.Sprintf("Order %s for %d movie(s), total $%s, is awaiting payment.",
			payload.OrderID, payload.ItemCount, payload.TotalAmount.StringFixed(2)),
	}
	return notification, email, nil
}

func (c *Consumer) handleOrderPaid(payload payloads.OrderPaidEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.OrderID == uuid.Nil {
		return nil, nil, fmt.Errorf("incomplete order payload")
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID: payload.UserID,
		Type:   enums.NotificationTypeOrderPaid,
		Title:  "Payment received",
		Message: fmt.Sprintf("Payment of $%s for order %s was received. Your movies are ready.",
			payload.Amount.StringFixed(2), payload.OrderID),
		Link: stringPtr(link),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Payment received for your MovieGate order",
		HTML: fmt.Sprintf("<p>We received $%s for order <strong>%s</strong>. Your movies are ready to watch.</p>",
			payload.Amount.StringFixed(2), payload.OrderID),
		Text: fmt.Sprintf("We received $%s for order %s. Your movies are ready to watch.",
			payload.Amount.StringFixed(2), payload.OrderID),
	}
	return notification, email, nil
}

func (c *Consumer) handleOrderCanceled(payload payloads.OrderCanceledEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.OrderID == uuid.Nil {
		return nil, nil, fmt.Errorf("incomplete order payload")
	}
	message := fmt.Sprintf("Order %s was canceled.", payload.OrderID)
	if payload.Reason != "" {
		message = fmt.Sprintf("Order %s was canceled: %s.", payload.OrderID, payload.Reason)
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderCanceled,
		Title:   "Order canceled",
		Message: message,
		Link:    stringPtr(link),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Your MovieGate order was canceled",
		HTML:    fmt.Sprintf("<p>%s</p>", message),
		Text:    message,
	}
	return notification, email, nil
}

func (c *Consumer) handlePaymentFailed(payload payloads.PaymentFailedEvent) (*models.Notification, *mailer.Message, error) {
	if payload.UserID == uuid.Nil || payload.OrderID == uuid.Nil {
		return nil, nil, fmt.Errorf("incomplete payment payload")
	}
	message := fmt.Sprintf("Payment for order %s failed.", payload.OrderID)
	if payload.Reason != "" {
		message = fmt.Sprintf("Payment for order %s failed: %s.", payload.OrderID, payload.Reason)
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePaymentFailed,
		Title:   "Payment failed",
		Message: message,
		Link:    stringPtr(link),
	}
	email := &mailer.Message{
		ToEmail: payload.Email,
		Subject: "Payment failed for your MovieGate order",
		HTML:    fmt.Sprintf("<p>%s You can place a new order from your cart.</p>", message),
		Text:    fmt.Sprintf("%s You can place a new order from your cart.", message),
	}
	return notification, email, nil
}

func stringPtr(value string) *string {
	return &value
}
