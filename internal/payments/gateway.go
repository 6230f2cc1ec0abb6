// internal/payments/gateway.go
package payments

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/common/metrics"
	"shiftwork-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Define interfaces for mocking
type PaymentIntentService interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type SubscriptionService interface {
	New(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

type CustomerService interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
	// FindByEmail returns nil, nil when no customer matches.
	FindByEmail(ctx context.Context, email string) (*stripe.Customer, error)
}

// PaymentIntentResult is what the adapter returns for a one-off payment.
// ClientSecret goes back to the browser to confirm the payment.
type PaymentIntentResult struct {
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// SubscriptionResult is what the adapter returns for a new subscription.
// ClientSecret is empty when no further payment confirmation is required.
type SubscriptionResult struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	Status         string `json:"status"`
}

// Gateway creates payment intents and subscriptions against the external
// processor. It only ever creates; status mirrors are mutated exclusively by
// the webhook processor so the two write paths cannot race.
type Gateway struct {
	catalog       *Catalog
	intents       PaymentIntentService
	subscriptions SubscriptionService
	customers     CustomerService
	records       *Records
	logger        logger.Logger
	timeout       time.Duration
}

func NewGateway(cfg config.PaymentsConfig, catalog *Catalog, records *Records, log logger.Logger) *Gateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)

	return &Gateway{
		catalog:       catalog,
		intents:       sc.PaymentIntents,
		subscriptions: sc.Subscriptions,
		customers:     &stripeCustomers{api: sc},
		records:       records,
		logger:        log.WithFields(map[string]interface{}{"component": "payment-gateway"}),
		timeout:       config.GetDuration(cfg.RequestTimeout),
	}
}

// NewGatewayWithServices builds a gateway over explicit service clients
// instead of the stripe-backed ones.
func NewGatewayWithServices(catalog *Catalog, records *Records, intents PaymentIntentService,
	subscriptions SubscriptionService, customers CustomerService,
	log logger.Logger, timeout time.Duration) *Gateway {
	return &Gateway{
		catalog:       catalog,
		intents:       intents,
		subscriptions: subscriptions,
		customers:     customers,
		records:       records,
		logger:        log.WithFields(map[string]interface{}{"component": "payment-gateway"}),
		timeout:       timeout,
	}
}

// CreatePaymentIntent resolves priceKey against the catalog and creates a
// payment intent for the authoritative amount. An unknown key fails before
// any external call. A supplied idempotency token is passed through so client
// retries produce exactly one charge attempt.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, priceKey, requesterEmail, idempotencyKey string) (*PaymentIntentResult, error) {
	entry, err := g.catalog.LookupPrice(priceKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(entry.Amount),
		Currency:     stripe.String(entry.Currency),
		ReceiptEmail: stripe.String(requesterEmail),
		Description:  stripe.String(entry.Description),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.IdempotencyKey = stripe.String(idempotencyKey)
	}
	params.AddMetadata("price_key", entry.Key)

	intent, err := g.intents.New(params)
	if err != nil {
		metrics.PaymentAttempts.WithLabelValues("payment_intent", "failed").Inc()
		return nil, g.mapGatewayError(err)
	}
	metrics.PaymentAttempts.WithLabelValues("payment_intent", "created").Inc()

	if err := g.records.Insert(ctx, newIntentRecord(intent, entry, requesterEmail, idempotencyKey)); err != nil {
		// The intent exists remotely; the mirror will catch up via webhook.
		g.logger.Error("payment record insert failed", map[string]interface{}{
			"providerId": intent.ID,
			"error":      err.Error(),
		})
	}

	g.logger.Info("payment intent created", map[string]interface{}{
		"providerId": intent.ID,
		"priceKey":   entry.Key,
		"amount":     entry.Amount,
		"currency":   entry.Currency,
	})

	return &PaymentIntentResult{
		ClientSecret: intent.ClientSecret,
		Amount:       entry.Amount,
		Currency:     entry.Currency,
	}, nil
}

// CreateSubscription resolves planKey to the external plan identifier,
// finds-or-creates the customer by email, and creates the subscription in the
// incomplete-payment mode so the caller can confirm with the client secret.
func (g *Gateway) CreateSubscription(ctx context.Context, planKey, requesterEmail, idempotencyKey string) (*SubscriptionResult, error) {
	entry, err := g.catalog.LookupPlan(planKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	customer, err := g.findOrCreateCustomer(ctx, requesterEmail)
	if err != nil {
		metrics.PaymentAttempts.WithLabelValues("subscription", "failed").Inc()
		return nil, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customer.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(entry.ProviderPriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.IdempotencyKey = stripe.String(idempotencyKey)
	}
	params.AddMetadata("plan_key", entry.Key)
	params.AddExpand("latest_invoice.confirmation_secret")

	sub, err := g.subscriptions.New(params)
	if err != nil {
		metrics.PaymentAttempts.WithLabelValues("subscription", "failed").Inc()
		return nil, g.mapGatewayError(err)
	}
	metrics.PaymentAttempts.WithLabelValues("subscription", "created").Inc()

	if err := g.records.Insert(ctx, newSubscriptionRecord(sub, entry, requesterEmail, idempotencyKey)); err != nil {
		g.logger.Error("payment record insert failed", map[string]interface{}{
			"providerId": sub.ID,
			"error":      err.Error(),
		})
	}

	result := &SubscriptionResult{
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		result.ClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}

	g.logger.Info("subscription created", map[string]interface{}{
		"providerId": sub.ID,
		"planKey":    entry.Key,
		"status":     string(sub.Status),
	})

	return result, nil
}

// findOrCreateCustomer searches before creating so a retried request reuses
// the existing customer record instead of minting a duplicate.
func (g *Gateway) findOrCreateCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	existing, err := g.customers.FindByEmail(ctx, email)
	if err != nil {
		return nil, g.mapGatewayError(err)
	}
	if existing != nil {
		return existing, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	customer, err := g.customers.New(params)
	if err != nil {
		return nil, g.mapGatewayError(err)
	}
	return customer, nil
}

// mapGatewayError converts processor errors to the internal taxonomy. Raw
// processor detail is logged here and never echoed to the caller.
func (g *Gateway) mapGatewayError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		g.logger.Warn("gateway error", map[string]interface{}{
			"type":        string(stripeErr.Type),
			"code":        string(stripeErr.Code),
			"declineCode": string(stripeErr.DeclineCode),
			"status":      stripeErr.HTTPStatusCode,
			"requestId":   stripeErr.RequestID,
		})

		switch {
		case stripeErr.Type == stripe.ErrorTypeCard:
			return errors.NewCardDeclinedError(string(stripeErr.DeclineCode))
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			return errors.NewRateLimitedError()
		case stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
			return errors.NewGatewayUnavailableError(nil)
		default:
			return errors.NewInternalError(fmt.Errorf("gateway request rejected: %s", stripeErr.Code))
		}
	}

	// Connectivity failures and timeouts surface as plain errors.
	g.logger.Warn("gateway unreachable", map[string]interface{}{
		"error": err.Error(),
	})
	return errors.NewGatewayUnavailableError(nil)
}

func newIntentRecord(intent *stripe.PaymentIntent, entry PriceEntry, email, idempotencyKey string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:             uuid.New().String(),
		Kind:           models.PaymentKindIntent,
		ProviderID:     intent.ID,
		PriceKey:       entry.Key,
		RequesterEmail: email,
		Amount:         entry.Amount,
		Currency:       entry.Currency,
		IdempotencyKey: idempotencyKey,
		Status:         string(intent.Status),
	}
}

func newSubscriptionRecord(sub *stripe.Subscription, entry PlanEntry, email, idempotencyKey string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:             uuid.New().String(),
		Kind:           models.PaymentKindSubscription,
		ProviderID:     sub.ID,
		PriceKey:       entry.Key,
		RequesterEmail: email,
		Amount:         entry.Amount,
		Currency:       entry.Currency,
		IdempotencyKey: idempotencyKey,
		Status:         string(sub.Status),
	}
}

// stripeCustomers adapts the SDK customer client to CustomerService, hiding
// the list iterator behind FindByEmail.
type stripeCustomers struct {
	api *client.API
}

func (s *stripeCustomers) New(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return s.api.Customers.New(params)
}

func (s *stripeCustomers) FindByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.api.Customers.List(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
