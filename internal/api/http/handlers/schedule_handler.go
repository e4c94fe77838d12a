package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-nurture-service/internal/api/dto"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	"github.com/spec-kit/lead-nurture-service/internal/service"
)

// ScheduleHandler exposes the operational view of a lead's sequences.
type ScheduleHandler struct {
	enrollment *service.EnrollmentService
	emails     repository.ScheduledEmailRepository
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(enrollment *service.EnrollmentService, emails repository.ScheduledEmailRepository) *ScheduleHandler {
	return &ScheduleHandler{enrollment: enrollment, emails: emails}
}

// GetSchedule GET /leads/:id/schedule.
func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	leadID := c.Params("id")

	lead, enrollments, latestScan, err := h.enrollment.ScheduleForLead(c.Context(), leadID)
	if err != nil {
		return err
	}
	rows, err := h.emails.ListByLead(c.Context(), leadID)
	if err != nil {
		return err
	}

	resp := dto.ScheduleResponse{
		Lead:        dto.FromLead(lead),
		Enrollments: make([]dto.EnrollmentResponse, 0, len(enrollments)),
		Emails:      make([]dto.ScheduledEmailResponse, 0, len(rows)),
		LatestScan:  dto.FromScan(latestScan),
	}
	for _, e := range enrollments {
		resp.Enrollments = append(resp.Enrollments, dto.FromEnrollment(e))
	}
	for _, row := range rows {
		resp.Emails = append(resp.Emails, dto.FromScheduledEmail(row))
	}
	return c.JSON(fiber.Map{"data": resp})
}
