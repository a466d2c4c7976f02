package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeReportCompleted = "report:completed"
	TypeSLASweep        = "report:sla_sweep"
)

// ReportCompletedPayload identifies an order that just moved to COMPLETED
type ReportCompletedPayload struct {
	ReportID       uint      `json:"reportId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func NewReportCompletedTask(payload ReportCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportCompleted, data), nil
}

// NewSLASweepTask carries no payload; the sweep checks every organization.
func NewSLASweepTask() *asynq.Task {
	return asynq.NewTask(TypeSLASweep, nil)
}
