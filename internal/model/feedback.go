package model

import (
	"errors"
	"time"
)

// FeedbackRecord is the body sent to the feedback-collection endpoint.
// The JSON shape is a wire contract shared with the collector.
type FeedbackRecord struct {
	Text                string  `json:"text"`
	PredictedDistortion Label   `json:"predicted_distortion"`
	UserCorrection      *Label  `json:"user_correction"`
	IsAccepted          bool    `json:"is_accepted"`
	Confidence          float64 `json:"confidence"`
}

// Validate checks the accept/correct invariant.
// Membership of the correction in the label catalog is checked by the submitter.
func (f FeedbackRecord) Validate() error {
	if f.Text == "" {
		return errors.New("feedback text is empty")
	}
	if f.IsAccepted && f.UserCorrection != nil {
		return errors.New("accepted feedback must not carry a correction")
	}
	if !f.IsAccepted && (f.UserCorrection == nil || *f.UserCorrection == "") {
		return errors.New("rejected feedback requires a correction")
	}
	return nil
}

// StoredFeedback is a FeedbackRecord persisted by the collector
type StoredFeedback struct {
	ID int64 `json:"id"`
	FeedbackRecord
	CreatedAt      time.Time `json:"timestamp"`
	UsedInTraining bool      `json:"used_in_training"`
}

// TrainingPair is a user-corrected sentence exported for retraining
type TrainingPair struct {
	Text  string `json:"text" db:"text"`
	Label Label  `json:"label" db:"user_correction"`
}
