package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-nurture-service/internal/api/dto"
	"github.com/spec-kit/lead-nurture-service/internal/auth"
	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	"github.com/spec-kit/lead-nurture-service/internal/service"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

// SuppressionHandler serves the unsubscribe link and the conversion webhook.
type SuppressionHandler struct {
	suppression *service.SuppressionService
	leads       repository.LeadRepository
	tokens      *auth.UnsubscribeTokenManager
}

// NewSuppressionHandler constructs handler.
func NewSuppressionHandler(suppression *service.SuppressionService, leads repository.LeadRepository, tokens *auth.UnsubscribeTokenManager) *SuppressionHandler {
	return &SuppressionHandler{suppression: suppression, leads: leads, tokens: tokens}
}

// Unsubscribe GET /unsubscribe. The one-click link from email bodies; the
// token alone authenticates, and re-clicking an already-used link still
// succeeds.
func (h *SuppressionHandler) Unsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	leadID, err := h.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid or expired unsubscribe token")
	}

	if err := h.suppression.Suppress(c.Context(), leadID, domain.SuppressionReasonUnsubscribe); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":  "unsubscribed",
		"lead_id": leadID,
	}})
}

// Conversion POST /suppressions/conversion. A converted lead stops receiving
// nurture email; with a sequence_type only that track stops.
func (h *SuppressionHandler) Conversion(c *fiber.Ctx) error {
	var req dto.ConversionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	leadID := req.LeadID
	if leadID == "" && req.Email != "" {
		lead, err := h.leads.GetByEmail(c.Context(), req.Email)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("lead", map[string]any{"email": req.Email})
		}
		if err != nil {
			return apperrors.MapError(err)
		}
		leadID = lead.ID
	}
	if leadID == "" {
		return apperrors.NewValidationError("lead_id or email required", nil)
	}

	if req.SequenceType != nil {
		if err := h.suppression.SuppressSequence(c.Context(), leadID, *req.SequenceType, domain.SuppressionReasonConversion); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": fiber.Map{
			"status":        "sequence_stopped",
			"lead_id":       leadID,
			"sequence_type": *req.SequenceType,
		}})
	}

	if err := h.suppression.Suppress(c.Context(), leadID, domain.SuppressionReasonConversion); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":  "suppressed",
		"lead_id": leadID,
	}})
}
