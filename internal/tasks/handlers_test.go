package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func completedTask(t *testing.T, report *models.Report) *asynq.Task {
	t.Helper()
	task, err := NewReportCompletedTask(ReportCompletedPayload{ReportID: report.ID, OrganizationID: report.OrganizationID})
	require.NoError(t, err)
	return task
}

func eventKinds(t *testing.T, db *gorm.DB, reportID uint) []models.EventKind {
	t.Helper()
	var events []models.ReportEvent
	require.NoError(t, db.Where("report_id = ?", reportID).Order("created_at asc").Find(&events).Error)
	kinds := make([]models.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func backdate(t *testing.T, db *gorm.DB, report *models.Report, created time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Report{}).Where("id = ?", report.ID).UpdateColumn("created_at", created).Error)
}

func TestRegisterHandlers(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	h, pattern := mux.Handler(NewSLASweepTask())
	assert.NotNil(t, h)
	assert.Equal(t, TypeSLASweep, pattern)
}

func TestHandleReportCompleted_InvalidPayload(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	task := asynq.NewTask(TypeReportCompleted, []byte("invalid json"))

	err := handler.HandleReportCompleted(context.Background(), task)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
}

func TestHandleReportCompleted_Met(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	report := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusCompleted)

	require.NoError(t, handler.HandleReportCompleted(context.Background(), completedTask(t, report)))
	assert.Equal(t, []models.EventKind{models.EventSLAMet}, eventKinds(t, setup.DB, report.ID))

	// A retry must not record a second outcome.
	require.NoError(t, handler.HandleReportCompleted(context.Background(), completedTask(t, report)))
	assert.Len(t, eventKinds(t, setup.DB, report.ID), 1)
}

func TestHandleReportCompleted_Breached(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	report := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusCompleted)
	backdate(t, setup.DB, report, time.Now().Add(-100*time.Hour))

	require.NoError(t, handler.HandleReportCompleted(context.Background(), completedTask(t, report)))
	assert.Equal(t, []models.EventKind{models.EventSLABreached}, eventKinds(t, setup.DB, report.ID))
}

func TestHandleReportCompleted_Reopened(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	report := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusPending)

	require.NoError(t, handler.HandleReportCompleted(context.Background(), completedTask(t, report)))
	assert.Empty(t, eventKinds(t, setup.DB, report.ID))
}

func TestHandleReportCompleted_OtherOrganization(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())
	report := testutil.CreateTestReport(t, setup.DB, setup.Org, nil, models.StatusCompleted)
	other := testutil.CreateTestOrg(t, setup.DB)

	data, err := json.Marshal(ReportCompletedPayload{ReportID: report.ID, OrganizationID: other.ID})
	require.NoError(t, err)

	require.NoError(t, handler.HandleReportCompleted(context.Background(), asynq.NewTask(TypeReportCompleted, data)))
	assert.Empty(t, eventKinds(t, setup.DB, report.ID))
}

func TestHandleSLASweep(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := NewHandler(setup.DB, testLogger())

	overdue := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusInProgress)
	backdate(t, setup.DB, overdue, time.Now().Add(-96*time.Hour))

	fresh := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusPending)

	closed := testutil.CreateTestReport(t, setup.DB, setup.Org, setup.Technician, models.StatusCompleted)
	backdate(t, setup.DB, closed, time.Now().Add(-200*time.Hour))

	require.NoError(t, handler.HandleSLASweep(context.Background(), NewSLASweepTask()))
	assert.Equal(t, []models.EventKind{models.EventSLABreached}, eventKinds(t, setup.DB, overdue.ID))
	assert.Empty(t, eventKinds(t, setup.DB, fresh.ID))
	assert.Empty(t, eventKinds(t, setup.DB, closed.ID))

	// Second sweep does not duplicate the breach.
	require.NoError(t, handler.HandleSLASweep(context.Background(), NewSLASweepTask()))
	assert.Len(t, eventKinds(t, setup.DB, overdue.ID), 1)
}

func TestEnqueuer_NilClient(t *testing.T) {
	e := NewEnqueuer(nil, testLogger())
	assert.NoError(t, e.NotifyCompleted(context.Background(), uuid.New(), 1))
}
