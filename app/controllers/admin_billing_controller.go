package controllers

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localhub-app/LocalHub/internal/pkg/usercontext"
)

// HandleAdminListPendingSubmissions returns the manual review queue,
// oldest first.
func HandleAdminListPendingSubmissions(c *fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	subs, err := newManualReviewService().PendingSubmissions(ctx, offset, limit)
	if err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{
		"submissions": subs,
		"offset":      offset,
	})
}

// HandleAdminApproveSubmission credits the plan attached to a pending
// manual submission.
func HandleAdminApproveSubmission(c *fiber.Ctx) error {
	reviewerID := usercontext.GetUserID(c)
	submissionID := strings.TrimSpace(c.Params("submissionID"))
	if submissionID == "" {
		return badRequest(c, "submission id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	result, err := newManualReviewService().Approve(ctx, submissionID, reviewerID)
	if err != nil {
		log.Printf("[Billing] approve of submission %s by admin %d failed: %v", submissionID, reviewerID, err)
		return billingError(c, err)
	}
	return c.JSON(creditResultResponse(result))
}

type rejectSubmissionRequest struct {
	Notes string `json:"notes"`
}

// HandleAdminRejectSubmission rejects a pending manual submission. A
// submission younger than the review cooldown cannot be rejected yet.
func HandleAdminRejectSubmission(c *fiber.Ctx) error {
	reviewerID := usercontext.GetUserID(c)
	submissionID := strings.TrimSpace(c.Params("submissionID"))
	if submissionID == "" {
		return badRequest(c, "submission id is required")
	}

	var req rejectSubmissionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	if err := newManualReviewService().Reject(ctx, submissionID, reviewerID, req.Notes); err != nil {
		return billingError(c, err)
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}
