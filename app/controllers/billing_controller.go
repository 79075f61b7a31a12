package controllers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/localhub-app/LocalHub/internal/pkg/assets"
	"github.com/localhub-app/LocalHub/internal/pkg/billing"
	"github.com/localhub-app/LocalHub/internal/pkg/database"
	"github.com/localhub-app/LocalHub/internal/pkg/entitlements"
	"github.com/localhub-app/LocalHub/internal/pkg/env"
	"github.com/localhub-app/LocalHub/internal/pkg/usercontext"
)

const billingRequestTimeout = 20 * time.Second

var (
	payloadValidator = validator.New()

	// receiptStore is nil when S3 is not configured; manual submissions are
	// rejected in that case instead of silently dropping receipts.
	receiptStore *assets.Store
)

// InitializeBillingController wires the receipt asset store.
func InitializeBillingController() {
	cfg := assets.NewConfigFromEnv()
	if !cfg.IsConfigured() {
		log.Print("[Billing] receipt asset store not configured, manual submissions disabled")
		return
	}
	store, err := assets.NewStore(cfg)
	if err != nil {
		log.Printf("[Billing] failed to initialize receipt asset store: %v", err)
		return
	}
	receiptStore = store
}

func newBillingService() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB())
}

func newCardWalletAdapter() *billing.CardWalletAdapter {
	return billing.NewCardWalletAdapter(
		billing.NewCardWalletClientFromEnv(),
		newBillingService(),
		billing.NewRedisOrderStore(),
	)
}

func newOnchainAdapter() *billing.OnchainAdapter {
	// Mock transactions are decided here, once, at construction: they need
	// both a dev environment and the explicit toggle.
	allowMock := env.IsDev() && env.GetEnv("ONCHAIN_ALLOW_MOCK_TX", "false") == "true"
	return billing.NewOnchainAdapter(newBillingService(), billing.OnchainConfig{
		AllowMockTransactions: allowMock,
	})
}

func newManualReviewService() *billing.ManualReviewService {
	var store billing.AssetStore
	if receiptStore != nil {
		store = receiptStore
	}
	return billing.NewManualReviewService(
		billing.NewRepository(database.GetDB()),
		newBillingService(),
		store,
	)
}

// HandleListPlans returns the public plan/price table.
func HandleListPlans(c *fiber.Ctx) error {
	type planOption struct {
		PlanID string  `json:"plan_id"`
		Months int     `json:"months"`
		Total  float64 `json:"total"`
	}
	type planInfo struct {
		Tier         string              `json:"tier"`
		MonthlyPrice float64             `json:"monthly_price"`
		Options      []planOption        `json:"options"`
		Limits       entitlements.Limits `json:"limits"`
	}

	var plans []planInfo
	for _, tier := range billing.PaidTiers() {
		info := planInfo{
			Tier:         tier.String(),
			MonthlyPrice: billing.PriceForTier(tier),
			Limits:       entitlements.ForTier(tier),
		}
		for _, months := range []int{1, 3, 12} {
			info.Options = append(info.Options, planOption{
				PlanID: billing.PlanID(tier, months),
				Months: months,
				Total:  billing.TotalForSubscription(tier, months),
			})
		}
		plans = append(plans, info)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleGetSubscription returns the caller's current membership state.
func HandleGetSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	state, err := newBillingService().CurrentState(ctx, userID)
	if err != nil {
		return billingError(c, err)
	}

	resp := fiber.Map{
		"tier":   state.Tier.String(),
		"limits": entitlements.ForTier(state.Tier),
	}
	if !state.ExpiresAt.IsZero() {
		resp["expires_at"] = state.ExpiresAt.UTC().Format(time.RFC3339)
		if state.ExpiresAt.Before(time.Now()) {
			resp["tier"] = billing.TierFree.String()
			resp["limits"] = entitlements.ForTier(billing.TierFree)
		}
	}
	return c.JSON(resp)
}

type createOrderRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// HandleCreateCardOrder starts the two-phase card/wallet checkout.
func HandleCreateCardOrder(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payloadValidator.Struct(&req); err != nil {
		return badRequest(c, "plan_id is required")
	}

	tier, months, ok := billing.ParsePlanID(req.PlanID)
	if !ok {
		return badRequest(c, "unknown plan")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	orderID, amount, err := newCardWalletAdapter().CreateOrder(ctx, userID, tier, months)
	if err != nil {
		log.Printf("[Billing] card order create failed for user %d: %v", userID, err)
		return billingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id": orderID,
		"amount":   amount,
		"currency": "USD",
	})
}

// HandleCaptureCardOrder captures a previously created order and credits
// the subscription.
func HandleCaptureCardOrder(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	orderID := strings.TrimSpace(c.Params("orderID"))
	if orderID == "" {
		return badRequest(c, "order id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	result, err := newCardWalletAdapter().CaptureOrder(ctx, userID, orderID)
	if err != nil {
		log.Printf("[Billing] card order capture failed for user %d: %v", userID, err)
		return billingError(c, err)
	}
	return c.JSON(creditResultResponse(result))
}

type onchainClaimRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
	TxID   string `json:"tx_id"`
}

// HandleOnchainClaim reconciles a self-reported on-chain transfer. The
// transfer itself must have been validated by the on-chain verifier before
// this endpoint is called.
func HandleOnchainClaim(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req onchainClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payloadValidator.Struct(&req); err != nil {
		return badRequest(c, "plan_id is required")
	}

	tier, months, ok := billing.ParsePlanID(req.PlanID)
	if !ok {
		return badRequest(c, "unknown plan")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	result, err := newOnchainAdapter().SubmitClaim(ctx, userID, req.TxID, tier, months)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(creditResultResponse(result))
}

// HandleManualSubmit accepts a receipt upload for human review.
func HandleManualSubmit(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	if receiptStore == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   ErrCategoryUnavailable,
			"message": "manual payments are currently unavailable",
		})
	}

	businessID, err := strconv.ParseUint(c.FormValue("business_id"), 10, 32)
	if err != nil || businessID == 0 {
		return badRequest(c, "business_id is required")
	}
	amount, err := strconv.ParseFloat(c.FormValue("amount_usd"), 64)
	if err != nil || amount <= 0 {
		return badRequest(c, "amount_usd is required")
	}
	planID := c.FormValue("plan_id")
	if _, _, ok := billing.ParsePlanID(planID); !ok {
		return badRequest(c, "unknown plan")
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return badRequest(c, "receipt file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "receipt file could not be read")
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	receiptRef, err := receiptStore.Put(ctx, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		log.Printf("[Billing] receipt upload failed for user %d: %v", userID, err)
		return billingError(c, err)
	}

	submission, err := newManualReviewService().Submit(ctx, billing.ManualSubmitInput{
		UserID:     userID,
		BusinessID: uint(businessID),
		PlanID:     planID,
		AmountUSD:  amount,
		Method:     c.FormValue("method"),
		Reference:  c.FormValue("reference"),
		ReceiptRef: receiptRef,
	})
	if err != nil {
		return billingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"submission_id": submission.ID,
		"status":        submission.Status,
		"method":        submission.Method,
	})
}

// HandleMyManualSubmissions lists the caller's own manual submissions.
func HandleMyManualSubmissions(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	subs, err := newManualReviewService().MySubmissions(ctx, userID)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"submissions": subs})
}

func creditResultResponse(result *billing.CreditResult) fiber.Map {
	return fiber.Map{
		"tier":            result.Tier.String(),
		"expires_at":      result.ExpiresAt.UTC().Format(time.RFC3339),
		"already_applied": result.AlreadyApplied,
	}
}
