package workorder

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
)

const maxTitleLength = 200

// BlobSealer encrypts attachments at rest. A nil sealer stores plaintext.
type BlobSealer interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// OrderPatch is a partial update of a work order. Nil fields are left untouched.
type OrderPatch struct {
	Title   *string
	Content *string
	// Status "" means no change.
	Status *string

	// AssigneeSet distinguishes an omitted assignee from an explicit clear
	// (AssigneeSet with a nil AssigneeID).
	AssigneeSet bool
	AssigneeID  *uuid.UUID

	Activities *[]string
	Materials  *[]string

	// Signature nil is ignored. Evidence empty is ignored.
	Signature []byte
	Evidence  [][]byte
}

// Changeset is the proposed state of a report after applying a patch, and the
// columns that differ from the stored row.
type Changeset struct {
	Report   models.Report
	Columns  []string
	From     models.ReportStatus
	To       models.ReportStatus
	Assigned bool
}

func (c *Changeset) Empty() bool {
	return len(c.Columns) == 0
}

func (c *Changeset) StatusChanged() bool {
	return c.From != c.To
}

func (c *Changeset) Completed() bool {
	return c.StatusChanged() && c.To == models.StatusCompleted
}

func (c *Changeset) touch(col string) {
	if !slices.Contains(c.Columns, col) {
		c.Columns = append(c.Columns, col)
	}
}

// ParseStatus validates a requested status. An empty value means "keep current".
func ParseStatus(raw string, current models.ReportStatus) (models.ReportStatus, error) {
	if raw == "" {
		return current, nil
	}
	s := models.ReportStatus(raw)
	if !s.Valid() {
		return current, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// PlanUpdate applies a patch to a copy of current and reports what changed.
// It performs no authorization beyond the completed-report lock, which only
// a manager may lift; callers must have authorized against the report already.
func PlanUpdate(current *models.Report, patch OrderPatch, manager bool, now time.Time, sealer BlobSealer) (*Changeset, error) {
	if current.Status == models.StatusCompleted && !manager {
		return nil, ErrReportLocked
	}

	cs := &Changeset{Report: *current, From: current.Status, To: current.Status}
	next := &cs.Report

	if patch.Status != nil {
		status, err := ParseStatus(strings.TrimSpace(*patch.Status), current.Status)
		if err != nil {
			return nil, err
		}
		if status != current.Status {
			applyStatus(cs, status, now)
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, NewValidationError("title", "Title is required")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return nil, NewValidationError("title", fmt.Sprintf("Title must be at most %d characters", maxTitleLength))
		}
		if title != current.Title {
			next.Title = title
			cs.touch("title")
		}
	}

	if patch.Content != nil && *patch.Content != current.Content {
		next.Content = *patch.Content
		cs.touch("content")
	}

	if patch.AssigneeSet && !sameID(patch.AssigneeID, current.MemberID) {
		next.MemberID = patch.AssigneeID
		next.Assignee = nil
		cs.Assigned = true
		cs.touch("member_id")
	}

	if patch.Activities != nil && !slices.Equal(*patch.Activities, current.Activities) {
		next.Activities = *patch.Activities
		cs.touch("activities")
	}

	if patch.Materials != nil && !slices.Equal(*patch.Materials, current.Materials) {
		next.Materials = *patch.Materials
		cs.touch("materials")
	}

	if patch.Signature != nil {
		plain, err := openBlob(sealer, current.Signature)
		if err != nil {
			return nil, fmt.Errorf("opening signature: %w", err)
		}
		if !bytes.Equal(plain, patch.Signature) {
			sealed, err := sealBlob(sealer, patch.Signature)
			if err != nil {
				return nil, fmt.Errorf("sealing signature: %w", err)
			}
			next.Signature = sealed
			cs.touch("signature")
		}
	}

	if len(patch.Evidence) > 0 {
		plain, err := openBlobs(sealer, current.Evidence)
		if err != nil {
			return nil, fmt.Errorf("opening evidence: %w", err)
		}
		if !slices.EqualFunc(plain, patch.Evidence, bytes.Equal) {
			sealed, err := sealBlobs(sealer, patch.Evidence)
			if err != nil {
				return nil, fmt.Errorf("sealing evidence: %w", err)
			}
			next.Evidence = sealed
			cs.touch("evidence")
		}
	}

	return cs, nil
}

// applyStatus moves the proposed report into status and stamps the
// matching timestamp. startedAt keeps the first start time.
func applyStatus(cs *Changeset, status models.ReportStatus, now time.Time) {
	next := &cs.Report
	next.Status = status
	cs.To = status
	cs.touch("status")

	if cs.From == models.StatusCompleted && next.ClosedAt != nil {
		next.ClosedAt = nil
		cs.touch("closed_at")
	}

	switch status {
	case models.StatusCompleted:
		t := now
		next.ClosedAt = &t
		cs.touch("closed_at")
	case models.StatusInProgress:
		if next.StartedAt == nil {
			t := now
			next.StartedAt = &t
			cs.touch("started_at")
		}
	case models.StatusScheduled:
		t := now
		next.ScheduledAt = &t
		cs.touch("scheduled_at")
	}
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sealBlob(sealer BlobSealer, plain []byte) ([]byte, error) {
	if sealer == nil || len(plain) == 0 {
		return plain, nil
	}
	return sealer.Encrypt(plain)
}

func openBlob(sealer BlobSealer, stored []byte) ([]byte, error) {
	if sealer == nil || len(stored) == 0 {
		return stored, nil
	}
	return sealer.Decrypt(stored)
}

func sealBlobs(sealer BlobSealer, plain [][]byte) ([][]byte, error) {
	out := make([][]byte, 0, len(plain))
	for _, b := range plain {
		sealed, err := sealBlob(sealer, b)
		if err != nil {
			return nil, err
		}
		out = append(out, sealed)
	}
	return out, nil
}

func openBlobs(sealer BlobSealer, stored [][]byte) ([][]byte, error) {
	out := make([][]byte, 0, len(stored))
	for _, b := range stored {
		plain, err := openBlob(sealer, b)
		if err != nil {
			return nil, err
		}
		out = append(out, plain)
	}
	return out, nil
}
