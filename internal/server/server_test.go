package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// classifierServer labels sentences containing "never" as Overgeneralization
func classifierServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		atomic.AddInt32(calls, 1)

		var req struct {
			Sentences []string `json:"sentences"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		results := make([]model.Classification, len(req.Sentences))
		for i, s := range req.Sentences {
			results[i] = model.Classification{Input: s, Prediction: model.NoDistortion, Confidence: 0.6}
			if strings.Contains(s, "never") {
				results[i].Prediction = "Overgeneralization"
				results[i].Confidence = 0.734
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

type recordingSender struct {
	records []model.FeedbackRecord
	err     error
}

func (s *recordingSender) Send(ctx context.Context, record model.FeedbackRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func newTestPipeline(t *testing.T, url string) *pipeline.Pipeline {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Classifier.BaseURL = url
	cfg.Cache.Enabled = false

	c, err := pipeline.NewClassifier(cfg, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pipeline.NewPipeline(cfg, c, nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAnalyze(t *testing.T) {
	var calls int32
	cls := classifierServer(t, &calls)
	defer cls.Close()

	s := NewServer(newTestPipeline(t, cls.URL), &recordingSender{}, Options{Disclaimer: true}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze", gin.H{"text": "Nobody ever listens to me. I never win. OK."})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report pipeline.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(report.Sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(report.Sentences))
	}
	if report.Sentences[1].Label != "Overgeneralization" || !report.Sentences[1].Interactive {
		t.Errorf("unexpected unit: %+v", report.Sentences[1])
	}
	if report.Disclaimer != pipeline.Disclaimer {
		t.Errorf("expected disclaimer, got %q", report.Disclaimer)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one classifier request, got %d", calls)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	var calls int32
	cls := classifierServer(t, &calls)
	defer cls.Close()

	s := NewServer(newTestPipeline(t, cls.URL), &recordingSender{}, Options{}, nil)

	tests := []struct {
		name   string
		body   any
		status int
		want   string
	}{
		{
			name:   "empty text",
			body:   gin.H{"text": "   "},
			status: http.StatusBadRequest,
			want:   pipeline.EmptyInputMessage,
		},
		{
			name:   "malformed body",
			body:   "{not json",
			status: http.StatusBadRequest,
			want:   "text",
		},
		{
			name:   "unknown mode",
			body:   gin.H{"text": "Hi.", "mode": "paragraph"},
			status: http.StatusBadRequest,
			want:   "Unknown mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze", tt.body)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("expected body to contain %q, got %s", tt.want, w.Body.String())
			}
		})
	}

	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("rejected requests must not reach the classifier, got %d calls", calls)
	}
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	cls := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer cls.Close()

	s := NewServer(newTestPipeline(t, cls.URL), &recordingSender{}, Options{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze", gin.H{"text": "I never win."})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Analysis failed. Please try again." {
		t.Errorf("unexpected error message %q", body["error"])
	}
	if body["kind"] != string(apperr.KindAnalysisTransport) {
		t.Errorf("unexpected kind %q", body["kind"])
	}
}

func TestLabels(t *testing.T) {
	s := NewServer(newTestPipeline(t, "http://127.0.0.1:1"), &recordingSender{}, Options{}, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/labels", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp labelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Labels) == 0 || resp.Sentinel.Label != model.NoDistortion {
		t.Errorf("unexpected labels response: %+v", resp)
	}
	if resp.CorrectionOptions[len(resp.CorrectionOptions)-1] != model.NoDistortion {
		t.Error("sentinel must be the last correction option")
	}
}

func TestHealth(t *testing.T) {
	var calls int32
	cls := classifierServer(t, &calls)
	defer cls.Close()

	up := NewServer(newTestPipeline(t, cls.URL), &recordingSender{}, Options{}, nil)
	if w := doJSON(t, up.Handler(), http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	cls.Close()
	if w := doJSON(t, up.Handler(), http.MethodGet, "/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with classifier down, got %d", w.Code)
	}
}

func TestFeedbackRelay(t *testing.T) {
	sender := &recordingSender{}
	s := NewServer(newTestPipeline(t, "http://127.0.0.1:1"), sender, Options{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/feedback",
		`{"text":"Nobody ever listens to me.","predicted_distortion":"Overgeneralization","user_correction":null,"is_accepted":true,"confidence":0.734}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(sender.records) != 1 || !sender.records[0].IsAccepted {
		t.Errorf("unexpected relayed records: %+v", sender.records)
	}
}

func TestFeedbackRelay_Rejects(t *testing.T) {
	sender := &recordingSender{}
	s := NewServer(newTestPipeline(t, "http://127.0.0.1:1"), sender, Options{}, nil)

	bodies := map[string]string{
		"accepted with correction": `{"text":"x","predicted_distortion":"Labeling","user_correction":"Labeling","is_accepted":true,"confidence":0.5}`,
		"rejected without label":   `{"text":"x","predicted_distortion":"Labeling","user_correction":null,"is_accepted":false,"confidence":0.5}`,
		"unknown correction":       `{"text":"x","predicted_distortion":"Labeling","user_correction":"Catastrophizing","is_accepted":false,"confidence":0.5}`,
		"empty text":               `{"text":"","predicted_distortion":"Labeling","user_correction":null,"is_accepted":true,"confidence":0.5}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, s.Handler(), http.MethodPost, "/api/feedback", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}

	if len(sender.records) != 0 {
		t.Errorf("invalid feedback must not be relayed, got %d", len(sender.records))
	}
}

func TestFeedbackRelay_UpstreamFailure(t *testing.T) {
	sender := &recordingSender{err: apperr.FeedbackTransport("feedback endpoint returned HTTP 500", nil)}
	s := NewServer(newTestPipeline(t, "http://127.0.0.1:1"), sender, Options{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/feedback",
		`{"text":"x","predicted_distortion":"Labeling","user_correction":"No Distortion","is_accepted":false,"confidence":0.5}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Failed to submit feedback. Please try again.") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCollector_EndToEnd(t *testing.T) {
	store, err := feedback.OpenStore(filepath.Join(t.TempDir(), "feedback.db"), nil)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	p := newTestPipeline(t, "http://127.0.0.1:1")

	collector := NewServer(p, store, Options{Store: store}, nil)
	upstream := httptest.NewServer(collector.Handler())
	defer upstream.Close()

	relay := NewServer(p, feedback.NewClient(upstream.URL+"/feedback", "secret", 0, nil), Options{}, nil)

	w := doJSON(t, relay.Handler(), http.MethodPost, "/api/feedback",
		`{"text":"I never win.","predicted_distortion":"Overgeneralization","user_correction":"All-or-Nothing Thinking","is_accepted":false,"confidence":0.41}`)
	if w.Code != http.StatusOK {
		t.Fatalf("relay failed: %d %s", w.Code, w.Body.String())
	}

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].UserCorrection == nil || *records[0].UserCorrection != "All-or-Nothing Thinking" {
		t.Fatalf("unexpected stored records: %+v", records)
	}

	w = doJSON(t, collector.Handler(), http.MethodGet, "/feedback/stats", nil)
	var stats feedback.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Total != 1 || stats.Corrected != 1 || stats.Pending != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	w = doJSON(t, collector.Handler(), http.MethodGet, "/feedback?limit=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestCollectorRoutesRequireStore(t *testing.T) {
	s := NewServer(newTestPipeline(t, "http://127.0.0.1:1"), &recordingSender{}, Options{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/feedback", gin.H{"text": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a store, got %d", w.Code)
	}
}
