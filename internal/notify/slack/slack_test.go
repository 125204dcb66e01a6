package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ward/internal/triage"
)

func highRiskResult() *triage.Result {
	return &triage.Result{
		ID:        "01JN123",
		PatientID: "PAT-1A2B3C4D",
		Version:   2,
		Assessment: triage.Assessment{
			RiskLevel:             triage.RiskHigh,
			PriorityScore:         8.7,
			RecommendedDepartment: triage.DeptCardiology,
			Confidence:            0.91,
			RecommendedTests:      []string{"ECG", "Troponin"},
			Explainability: triage.Explanation{
				Reasoning: "Chest pain with abnormal vitals.",
			},
		},
		UpdatedAt: time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}
}

func TestNotify_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	if err := n.NotifyHighPriority(context.Background(), highRiskResult()); err != nil {
		t.Fatalf("NotifyHighPriority: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, reasoning, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	// Verify header carries the patient ID and the red circle for high risk
	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "PAT-1A2B3C4D") {
		t.Errorf("header text = %q, want to contain PAT-1A2B3C4D", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header should contain red circle for high risk")
	}
}

func TestNotify_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.NotifyHighPriority(context.Background(), &triage.Result{}); err != nil {
		t.Fatalf("NotifyHighPriority with empty URL should be no-op, got: %v", err)
	}
}

func TestNotify_TruncatesLongReasoning(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := highRiskResult()
	result.Assessment.Explainability.Reasoning = strings.Repeat("x", 4000)

	n := New(srv.URL, log.Nop())
	if err := n.NotifyHighPriority(context.Background(), result); err != nil {
		t.Fatalf("NotifyHighPriority: %v", err)
	}

	blocks := got["blocks"].([]any)
	reasoningSection := blocks[4].(map[string]any)
	text := reasoningSection["text"].(map[string]any)["text"].(string)

	// Text includes the "*Reasoning*\n\n" prefix, so the reasoning portion is what follows.
	// The reasoning itself should be truncated to maxReasoningLen (3000) chars.
	if len(text) > maxReasoningLen+len("*Reasoning*\n\n") {
		t.Errorf("reasoning text length = %d, expected <= %d", len(text), maxReasoningLen+len("*Reasoning*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated reasoning to end with ...")
	}
}

func TestRiskEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level triage.RiskLevel
		want  string
	}{
		{"high", triage.RiskHigh, "\U0001f534"},
		{"medium", triage.RiskMedium, "\U0001f7e1"},
		{"low", triage.RiskLow, "\U0001f7e2"},
		{"empty", triage.RiskLevel(""), "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := riskEmoji(tt.level)
			if got != tt.want {
				t.Errorf("riskEmoji(%q) = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("PAT-1", "High", "Chest pain with abnormal vitals.", "Cardiology")
	f.Add("", "", "", "")
	f.Add("<@U123> mention", "Medium", "*bold* _italic_ ~strike~", "ER")
	f.Add("pat\x00\x01\x02", "sev\nline", "reasoning\ttab", "dep\x00t")
	f.Add(strings.Repeat("A", 5000), "High", strings.Repeat("x", 10000), "Neurology")
	f.Add("test", "Low", "```code block``` and <http://example.com|link>", "General Medicine")

	f.Fuzz(func(t *testing.T, patientID, riskLevel, reasoning, department string) {
		result := &triage.Result{
			ID:        "fuzz-id",
			PatientID: patientID,
			Version:   1,
			Assessment: triage.Assessment{
				RiskLevel:             triage.RiskLevel(riskLevel),
				PriorityScore:         7.5,
				RecommendedDepartment: department,
				Confidence:            0.8,
				Explainability:        triage.Explanation{Reasoning: reasoning},
			},
			UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// Must not panic
		msg := buildMessage(result)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		// Must round-trip
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}

func TestNotify_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.NotifyHighPriority(context.Background(), highRiskResult())
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
