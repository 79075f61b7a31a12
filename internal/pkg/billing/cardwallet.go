package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"github.com/localhub-app/LocalHub/internal/pkg/env"
)

const defaultCardWalletAPIBaseURL = "https://api.paypal.com"

// CardWalletClient talks to the external card/wallet processor. The
// processor exposes a two-phase order protocol: create an order for an
// amount, then capture it once the payer approved. Capture returns the
// unique capture id used as the ledger transaction reference.
type CardWalletClient struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string

	HTTPClient *http.Client
}

// NewCardWalletClientFromEnv builds a client from process configuration.
func NewCardWalletClientFromEnv() *CardWalletClient {
	return &CardWalletClient{
		ClientID:     strings.TrimSpace(env.GetEnv("CARD_WALLET_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("CARD_WALLET_CLIENT_SECRET", "")),
		APIBaseURL:   strings.TrimRight(env.GetEnv("CARD_WALLET_API_BASE_URL", defaultCardWalletAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type cardWalletOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type cardWalletCaptureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder registers an order for the given amount with the processor
// and returns the opaque order id.
func (c *CardWalletClient) CreateOrder(ctx context.Context, amount float64, currency string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", errors.New("CARD_WALLET_CLIENT_ID/CARD_WALLET_CLIENT_SECRET are not configured")
	}
	if amount <= 0 {
		return "", errors.New("order amount must be positive")
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         strconv.FormatFloat(amount, 'f', 2, 64),
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("card/wallet order create failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out cardWalletOrderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("card/wallet order create returned empty order id")
	}
	return out.ID, nil
}

// CaptureOrder confirms that funds moved for the order and returns the
// processor's capture id.
func (c *CardWalletClient) CaptureOrder(ctx context.Context, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", errors.New("order id is required")
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.APIBaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayCaptureFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status=%d body=%s", ErrGatewayCaptureFailed, resp.StatusCode, string(respBody))
	}

	var out cardWalletCaptureResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayCaptureFailed, err)
	}
	if !strings.EqualFold(out.Status, "COMPLETED") {
		return "", fmt.Errorf("%w: capture status %s", ErrGatewayCaptureFailed, out.Status)
	}

	for _, pu := range out.PurchaseUnits {
		for _, capture := range pu.Payments.Captures {
			if id := strings.TrimSpace(capture.ID); id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: capture response missing capture id", ErrGatewayCaptureFailed)
}

// CardWalletOrder is the plan context parked between order creation and
// capture. It lives in Redis with a TTL; an order never captured simply
// expires and nothing reaches the ledger.
type CardWalletOrder struct {
	UserID   uint    `json:"user_id"`
	Tier     Tier    `json:"tier"`
	Months   int     `json:"months"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// OrderStore parks pending card/wallet orders between the two protocol
// phases. The parked order must survive a failed capture attempt so the
// client can retry; it is only removed once reconciliation succeeded.
type OrderStore interface {
	Put(ctx context.Context, orderID string, order CardWalletOrder, ttl time.Duration) error
	// Get returns the parked order; ok=false when unknown or expired.
	Get(ctx context.Context, orderID string) (CardWalletOrder, bool, error)
	Delete(ctx context.Context, orderID string) error
}

// CardWalletAdapter drives the synchronous two-phase card/wallet flow and
// hands the capture result to the reconciliation service.
type CardWalletAdapter struct {
	client *CardWalletClient
	svc    *Service
	orders OrderStore
}

const pendingOrderTTL = time.Hour

// NewCardWalletAdapter wires the processor client, order store and
// reconciliation service together.
func NewCardWalletAdapter(client *CardWalletClient, svc *Service, orders OrderStore) *CardWalletAdapter {
	return &CardWalletAdapter{client: client, svc: svc, orders: orders}
}

// CreateOrder prices the requested plan and registers an order with the
// processor. The plan context is parked until capture.
func (a *CardWalletAdapter) CreateOrder(ctx context.Context, userID uint, tier Tier, months int) (string, float64, error) {
	amount := TotalForSubscription(tier, months)
	if amount <= 0 {
		return "", 0, ErrUnresolvableAmount
	}

	orderID, err := a.client.CreateOrder(ctx, amount, "USD")
	if err != nil {
		return "", 0, err
	}

	order := CardWalletOrder{UserID: userID, Tier: tier, Months: months, Amount: amount, Currency: "USD"}
	if err := a.orders.Put(ctx, orderID, order, pendingOrderTTL); err != nil {
		return "", 0, err
	}
	return orderID, amount, nil
}

// CaptureOrder captures the order at the processor and reconciles the
// payment. A capture failure or timeout writes nothing to the ledger. The
// parked order is kept until reconciliation succeeds: the processor may
// have captured funds even when this call fails (ambiguous timeout, or a
// transient storage error after capture), and a retry must still find the
// order context. Replaying the capture is safe because the ledger dedupes
// on the capture id.
func (a *CardWalletAdapter) CaptureOrder(ctx context.Context, userID uint, orderID string) (*CreditResult, error) {
	order, ok, err := a.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	captureID, err := a.client.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result, err := a.svc.Reconcile(ctx, PaymentEvent{
		UserID:         order.UserID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: captureID,
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := a.orders.Delete(ctx, orderID); err != nil {
		// A leftover key only shortens the capture window, it can never
		// cause a double credit.
		log.Printf("[Billing] failed to clear captured order %s: %v", orderID, err)
	}
	return result, nil
}
