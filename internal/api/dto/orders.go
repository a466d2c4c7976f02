package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/api/validation"
	"github.com/hugh/fieldops/internal/workorder"
)

type CreateOrderRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content"`
	AssigneeID string `json:"assigneeId" validate:"omitempty,uuid"`
}

func (r *CreateOrderRequest) Validate() map[string]string {
	r.Title = strings.TrimSpace(validation.SanitizeString(r.Title))
	r.Content = validation.SanitizeString(r.Content)
	r.AssigneeID = strings.TrimSpace(r.AssigneeID)
	return Validate(r)
}

func (r CreateOrderRequest) ToInput() workorder.CreateOrderInput {
	in := workorder.CreateOrderInput{Title: r.Title, Content: r.Content}
	if id, err := uuid.Parse(r.AssigneeID); err == nil {
		in.AssigneeID = &id
	}
	return in
}

// UpdateOrderRequest is a partial update. Raw fields keep "absent" apart from
// an explicit null and accept more than one JSON shape.
type UpdateOrderRequest struct {
	Title      *string         `json:"title"`
	Content    *string         `json:"content"`
	Status     *string         `json:"status"`
	AssigneeID json.RawMessage `json:"assigneeId"`
	Activities json.RawMessage `json:"activities"`
	Materials  json.RawMessage `json:"materials"`
	Signature  *string         `json:"signature"`
	Evidence   []string        `json:"evidence"`
}

// ToPatch converts the request into a service patch. Field problems are
// returned keyed by JSON name.
func (r UpdateOrderRequest) ToPatch() (workorder.OrderPatch, map[string]string) {
	errs := make(map[string]string)
	patch := workorder.OrderPatch{
		Title:   sanitized(r.Title),
		Content: sanitized(r.Content),
		Status:  r.Status,
	}

	if len(r.AssigneeID) > 0 {
		patch.AssigneeSet = true
		if !isNull(r.AssigneeID) {
			var raw string
			if err := json.Unmarshal(r.AssigneeID, &raw); err != nil {
				errs["assigneeId"] = "assigneeId must be a string or null"
			} else if raw = strings.TrimSpace(raw); raw != "" {
				id, err := validation.ParseUUID(raw)
				if err != nil {
					errs["assigneeId"] = "assigneeId must be a valid UUID"
				} else {
					patch.AssigneeID = &id
				}
			}
		}
	}

	if list, ok, err := parseList(r.Activities); err != nil {
		errs["activities"] = "activities must be a list or text"
	} else if ok {
		patch.Activities = &list
	}
	if list, ok, err := parseList(r.Materials); err != nil {
		errs["materials"] = "materials must be a list or text"
	} else if ok {
		patch.Materials = &list
	}

	if r.Signature != nil && strings.TrimSpace(*r.Signature) != "" {
		sig, err := validation.DecodeDataURL(*r.Signature)
		if err != nil {
			errs["signature"] = "signature must be base64 or a data URL"
		} else {
			patch.Signature = sig
		}
	}

	for _, item := range r.Evidence {
		b, err := validation.DecodeDataURL(item)
		if err != nil {
			errs["evidence"] = "evidence items must be base64 or data URLs"
			break
		}
		patch.Evidence = append(patch.Evidence, b)
	}

	return patch, errs
}

// parseList accepts a JSON array of strings or a newline/comma separated
// string. ok is false when the field was absent or null.
func parseList(raw json.RawMessage) ([]string, bool, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, false, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return validation.NormalizeList(text), true, nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, err
	}
	out := []string{}
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, true, nil
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	clean := validation.SanitizeString(*s)
	return &clean
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type CreateCorrectionRequest struct {
	ReportID uint   `json:"reportId" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required"`
}

func (r *CreateCorrectionRequest) Validate() map[string]string {
	r.Content = strings.TrimSpace(validation.SanitizeString(r.Content))
	return Validate(r)
}

type UpdateCorrectionRequest struct {
	Content *string `json:"content"`
}

// Sanitize strips control characters from the new content, if any.
func (r *UpdateCorrectionRequest) Sanitize() {
	if r.Content != nil {
		c := validation.SanitizeString(*r.Content)
		r.Content = &c
	}
}

type MessageRequest struct {
	Text string   `json:"text" validate:"required"`
	Tags []string `json:"tags" validate:"omitempty,max=10"`
}

func (r *MessageRequest) Validate() map[string]string {
	r.Text = strings.TrimSpace(validation.SanitizeString(r.Text))
	return Validate(r)
}

// Response envelopes. Single resources and lists are always wrapped under a
// named key, matching the {report, unchanged} shape of PATCH responses.

type ReportResponse struct {
	Report *workorder.ReportView `json:"report"`
}

type CorrectionResponse struct {
	Correction *workorder.CorrectionView `json:"correction"`
}

type CorrectionsResponse struct {
	Corrections []workorder.CorrectionView `json:"corrections"`
}

type MessageResponse struct {
	Message *workorder.MessageView `json:"message"`
}

type MessagesResponse struct {
	Messages []workorder.MessageView `json:"messages"`
}

type EventsResponse struct {
	Events []workorder.EventView `json:"events"`
}
