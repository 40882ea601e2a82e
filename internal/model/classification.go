package model

// Label is a cognitive distortion category as emitted by the classifier
type Label string

// NoDistortion is the sentinel label for sentences the classifier considers neutral
const NoDistortion Label = "No Distortion"

// IsSentinel reports whether the label is the "No Distortion" sentinel
func (l Label) IsSentinel() bool {
	return l == NoDistortion
}

func (l Label) String() string {
	return string(l)
}

// AnalysisRequest is the input of one analysis
type AnalysisRequest struct {
	Text string `json:"text"`
}

// Classification is the classifier verdict for one sentence
type Classification struct {
	Input      string  `json:"input"`      // The sentence as submitted
	Prediction Label   `json:"prediction"` // Predicted distortion or the sentinel
	Confidence float64 `json:"confidence"` // Probability of the predicted class, 0..1
}

// Mode selects how text is submitted to the classifier
type Mode string

const (
	ModeBatch  Mode = "batch"  // One classification per sentence
	ModeSingle Mode = "single" // One classification for the whole text
)

// AnalysisResult is the ordered outcome of one analysis.
// The position in Classifications is the stable identity of a sentence;
// sentence text is not unique and must not be used as a key.
type AnalysisResult struct {
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	Mode            Mode             `json:"mode"`
	Provider        string           `json:"provider,omitempty"`
	Classifications []Classification `json:"results"`
}

// Len returns the number of classified sentences
func (r *AnalysisResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Classifications)
}

// AllSentinel reports whether every sentence was classified as "No Distortion".
// An empty result counts as all sentinel.
func (r *AnalysisResult) AllSentinel() bool {
	for _, c := range r.Classifications {
		if !c.Prediction.IsSentinel() {
			return false
		}
	}
	return true
}
