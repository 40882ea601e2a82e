package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/model"
)

// wireItem uses pointers so missing fields can be told apart from zero values
type wireItem struct {
	Input      *string  `json:"input"`
	Prediction *string  `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

// Normalize decodes a classifier response body. Accepted shapes are
// {"results":[...]}, a bare array, or a single {input,prediction,confidence}
// object. The result must hold exactly one item per submitted input.
func Normalize(body []byte, req Request) ([]model.Classification, error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	if want := req.Expected(); len(items) != want {
		return nil, apperr.AnalysisFormat(
			fmt.Sprintf("expected %d classifications, got %d", want, len(items)), nil)
	}

	inputs := req.Inputs()
	out := make([]model.Classification, len(items))
	for i, item := range items {
		c, err := item.toClassification(i)
		if err != nil {
			return nil, err
		}
		// The submitted sentence is authoritative for position i
		if i < len(inputs) && inputs[i] != "" {
			c.Input = inputs[i]
		}
		out[i] = c
	}

	return out, nil
}

func decodeItems(body []byte) ([]wireItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, apperr.AnalysisFormat("empty classifier response", nil)
	}

	switch trimmed[0] {
	case '[':
		var items []wireItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, apperr.AnalysisFormat("malformed classification array", err)
		}
		return items, nil

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, apperr.AnalysisFormat("malformed classifier response", err)
		}

		if raw, ok := envelope["results"]; ok {
			var items []wireItem
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, apperr.AnalysisFormat("malformed results field", err)
			}
			return items, nil
		}

		if raw, ok := envelope["error"]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, apperr.AnalysisFormat("classifier reported an error", fmt.Errorf("%s", msg))
		}

		var item wireItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, apperr.AnalysisFormat("malformed classification object", err)
		}
		return []wireItem{item}, nil

	default:
		return nil, apperr.AnalysisFormat("classifier response is not JSON", nil)
	}
}

func (w wireItem) toClassification(i int) (model.Classification, error) {
	switch {
	case w.Prediction == nil:
		return model.Classification{}, apperr.AnalysisFormat(fmt.Sprintf("classification %d has no prediction", i), nil)
	case strings.TrimSpace(*w.Prediction) == "":
		return model.Classification{}, apperr.AnalysisFormat(fmt.Sprintf("classification %d has an empty prediction", i), nil)
	case w.Confidence == nil:
		return model.Classification{}, apperr.AnalysisFormat(fmt.Sprintf("classification %d has no confidence", i), nil)
	}

	conf := *w.Confidence
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return model.Classification{}, apperr.AnalysisFormat(
			fmt.Sprintf("classification %d has confidence %v outside [0,1]", i, conf), nil)
	}

	c := model.Classification{
		Prediction: model.Label(strings.TrimSpace(*w.Prediction)),
		Confidence: conf,
	}
	if w.Input != nil {
		c.Input = *w.Input
	}
	return c, nil
}
