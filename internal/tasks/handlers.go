package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/hugh/fieldops/pkg/metrics"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReportCompleted, h.HandleReportCompleted)
	mux.HandleFunc(TypeSLASweep, h.HandleSLASweep)
}

// HandleReportCompleted records whether a completed order met the SLA window.
func (h *Handler) HandleReportCompleted(ctx context.Context, t *asynq.Task) error {
	var payload ReportCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var report models.Report
	err := h.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", payload.ReportID, payload.OrganizationID).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("completed report not found", "report_id", payload.ReportID)
			return nil
		}
		return fmt.Errorf("loading report: %w", err)
	}

	// Reopened before the worker got to it.
	if !report.ClosedBy(h.now()) {
		h.logger.Info("report no longer completed, skipping SLA", "report_id", report.ID)
		return nil
	}

	recorded, err := h.hasSLAEvent(ctx, report.ID, models.EventSLAMet, models.EventSLABreached)
	if err != nil {
		return err
	}
	if recorded {
		return nil
	}

	kind, outcome := models.EventSLABreached, "breached"
	if workorder.MetSLA(report.CreatedAt, *report.ClosedAt) {
		kind, outcome = models.EventSLAMet, "met"
	}

	if err := h.recordEvent(ctx, report.ID, report.OrganizationID, kind, report.Status); err != nil {
		return err
	}
	metrics.ObserveSLA(outcome)

	h.logger.Info("recorded SLA outcome",
		"report_id", report.ID,
		"org_id", report.OrganizationID,
		"outcome", outcome,
	)
	return nil
}

type overdueRow struct {
	ID             uint
	OrganizationID uuid.UUID
	Status         models.ReportStatus
	CreatedAt      time.Time
}

// HandleSLASweep flags open orders that have outlived the SLA window.
func (h *Handler) HandleSLASweep(ctx context.Context, t *asynq.Task) error {
	var rows []overdueRow
	err := h.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("id", "organization_id", "status", "created_at").
		Where("status <> ?", models.StatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM report_events e WHERE e.report_id = reports.id AND e.kind = ? AND e.deleted_at IS NULL)", models.EventSLABreached).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("loading open reports: %w", err)
	}

	cutoff := h.now().Add(-workorder.SLAWindow)
	perOrg := make(map[uuid.UUID]int)
	for _, row := range rows {
		if !row.CreatedAt.Before(cutoff) {
			continue
		}
		if err := h.recordEvent(ctx, row.ID, row.OrganizationID, models.EventSLABreached, row.Status); err != nil {
			return err
		}
		metrics.ObserveSLA("breached")
		perOrg[row.OrganizationID]++
	}

	for orgID, n := range perOrg {
		h.logger.Info("flagged overdue orders", "org_id", orgID, "count", n)
	}
	return nil
}

func (h *Handler) hasSLAEvent(ctx context.Context, reportID uint, kinds ...models.EventKind) (bool, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.ReportEvent{}).
		Where("report_id = ? AND kind IN ?", reportID, kinds).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking SLA events: %w", err)
	}
	return count > 0, nil
}

func (h *Handler) recordEvent(ctx context.Context, reportID uint, orgID uuid.UUID, kind models.EventKind, status models.ReportStatus) error {
	event := models.ReportEvent{
		ReportID:       reportID,
		OrganizationID: orgID,
		Kind:           kind,
		ToStatus:       status,
	}
	if err := h.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("recording %s event: %w", kind, err)
	}
	return nil
}
