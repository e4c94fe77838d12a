package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-nurture-service/internal/api/dto"
	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/service"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

// TriggersHandler accepts the external events that enroll leads into
// sequences.
type TriggersHandler struct {
	enrollment *service.EnrollmentService
}

// NewTriggersHandler constructs handler.
func NewTriggersHandler(enrollment *service.EnrollmentService) *TriggersHandler {
	return &TriggersHandler{enrollment: enrollment}
}

// LeadCaptured POST /triggers/lead-captured.
func (h *TriggersHandler) LeadCaptured(c *fiber.Ctx) error {
	var req dto.LeadCapturedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	source := req.Source
	if source == "" {
		source = domain.LeadSourcePopup
	}
	lead, enrollment, err := h.enrollment.CaptureLead(c.Context(), service.LeadInput{
		Email:      req.Email,
		Name:       req.Name,
		Company:    req.Company,
		WebsiteURL: req.WebsiteURL,
		Source:     source,
	})
	return enrollmentResponse(c, lead, enrollment, err)
}

// ScanCompleted POST /triggers/scan-completed.
func (h *TriggersHandler) ScanCompleted(c *fiber.Ctx) error {
	var req dto.ScanCompletedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if req.Scan.Score < 0 || req.Scan.Score > 100 {
		return apperrors.NewValidationError("score must be between 0 and 100", nil)
	}

	scannedAt := time.Time{}
	if req.Scan.ScannedAt != nil {
		scannedAt = *req.Scan.ScannedAt
	}
	lead, enrollment, err := h.enrollment.RecordScanCompleted(c.Context(),
		service.LeadInput{
			Email:      req.Email,
			Name:       req.Name,
			Company:    req.Company,
			WebsiteURL: req.WebsiteURL,
			Source:     domain.LeadSourceScan,
		},
		service.ScanInput{
			Score:          req.Scan.Score,
			CriticalIssues: req.Scan.CriticalIssues,
			SeriousIssues:  req.Scan.SeriousIssues,
			ModerateIssues: req.Scan.ModerateIssues,
			MinorIssues:    req.Scan.MinorIssues,
			Platform:       req.Scan.Platform,
			TopIssues:      req.Scan.TopIssues,
			ScannedAt:      scannedAt,
		})
	return enrollmentResponse(c, lead, enrollment, err)
}

// ColdLeadImported POST /triggers/cold-lead-imported.
func (h *TriggersHandler) ColdLeadImported(c *fiber.Ctx) error {
	var req dto.ColdLeadImportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	lead, enrollment, err := h.enrollment.ImportColdLead(c.Context(), service.LeadInput{
		Email:      req.Email,
		Name:       req.Name,
		Company:    req.Company,
		WebsiteURL: req.WebsiteURL,
		Source:     domain.LeadSourceColdImport,
	})
	return enrollmentResponse(c, lead, enrollment, err)
}

// enrollmentResponse renders the shared trigger outcome. A rejected
// enrollment is not a failed request: the lead was still recorded, so the
// caller gets 200 with the rejection reason instead of an error status.
func enrollmentResponse(c *fiber.Ctx, lead *domain.Lead, enrollment *domain.Enrollment, err error) error {
	if err != nil {
		if apperrors.IsEnrollmentRejected(err) && lead != nil {
			domainErr := apperrors.ToDomainError(err)
			return c.JSON(fiber.Map{
				"data": fiber.Map{"lead": dto.FromLead(lead)},
				"rejection": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
					"details": domainErr.Details,
				},
			})
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"lead":       dto.FromLead(lead),
			"enrollment": dto.FromEnrollment(*enrollment),
		},
	})
}
