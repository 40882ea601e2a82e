package feedback

import (
	"context"
	"fmt"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
)

// Sender delivers one record
type Sender interface {
	Send(ctx context.Context, record model.FeedbackRecord) error
}

// Submitter checks prepared records against the catalog before delivery
type Submitter struct {
	sender  Sender
	catalog *catalog.Catalog
}

// NewSubmitter creates a submitter
func NewSubmitter(sender Sender, cat *catalog.Catalog) *Submitter {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Submitter{sender: sender, catalog: cat}
}

// Check validates a prepared record, including catalog membership of
// the correction
func (s *Submitter) Check(record model.FeedbackRecord) error {
	if err := record.Validate(); err != nil {
		return apperr.Validation(err.Error())
	}
	if record.UserCorrection != nil && !s.catalog.IsValidCorrection(*record.UserCorrection) {
		return apperr.Validation(fmt.Sprintf("Unknown correction label %q.", *record.UserCorrection))
	}
	return nil
}

// Submit validates and delivers a prepared record
func (s *Submitter) Submit(ctx context.Context, record model.FeedbackRecord) error {
	if err := s.Check(record); err != nil {
		return err
	}
	return s.sender.Send(ctx, record)
}
