// Package feedback turns a reader's accept/correct decision on one
// classified sentence into a FeedbackRecord and delivers it to the
// feedback-collection endpoint. It also contains the local collector store.
package feedback

import (
	"fmt"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
)

// NewRecord builds the record for classification c. Accepting carries no
// correction; correcting requires a catalog label or the sentinel, which
// may equal the prediction.
func NewRecord(c model.Classification, accepted bool, correction *model.Label, cat *catalog.Catalog) (model.FeedbackRecord, error) {
	if cat == nil {
		cat = catalog.Default()
	}

	record := model.FeedbackRecord{
		Text:                c.Input,
		PredictedDistortion: c.Prediction,
		IsAccepted:          accepted,
		Confidence:          c.Confidence,
	}

	if !accepted {
		if correction == nil {
			return model.FeedbackRecord{}, apperr.Validation("Choose a correction label.")
		}
		if !cat.IsValidCorrection(*correction) {
			return model.FeedbackRecord{}, apperr.Validation(fmt.Sprintf("Unknown correction label %q.", *correction))
		}
		label := *correction
		record.UserCorrection = &label
	}

	if err := record.Validate(); err != nil {
		return model.FeedbackRecord{}, apperr.Validation(err.Error())
	}
	return record, nil
}
