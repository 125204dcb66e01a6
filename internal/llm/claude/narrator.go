// Package claude generates clinician-facing narratives for persisted triage
// results using the Anthropic API.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/ward/internal/triage"
)

const (
	defaultModel   = "claude-sonnet-4-20250514"
	responseTokens = 1024
)

const systemPrompt = `You are a clinical documentation assistant. Given a
structured triage assessment, write a short narrative (3-5 sentences) for the
receiving clinician: presentation, why the priority was assigned, and what to
do first. Plain prose, no markdown, no treatment recommendations beyond the
listed tests.`

// Narrator generates narratives via the Anthropic Messages API. It
// implements triage.Narrator.
type Narrator struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Narrator. Extra request options (e.g. a base URL override
// in tests) are passed through to the SDK client.
func New(apiKey, model string, opts ...option.RequestOption) *Narrator {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Narrator{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}
}

// Narrate produces a narrative for one triage result.
func (n *Narrator) Narrate(ctx context.Context, result *triage.Result) (string, error) {
	msg, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     n.model,
		MaxTokens: responseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(result))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// buildPrompt renders the assessment as a compact plain-text summary. The
// model sees derived values only, never raw identifiers beyond the patient ID
// already chosen for the record.
func buildPrompt(r *triage.Result) string {
	a := &r.Assessment
	var sb strings.Builder

	fmt.Fprintf(&sb, "Patient %s, triage version %d.\n", r.PatientID, r.Version)
	fmt.Fprintf(&sb, "Risk level: %s. Priority score: %.2f. Department: %s (confidence %.2f).\n",
		a.RiskLevel, a.PriorityScore, a.RecommendedDepartment, a.Confidence)
	fmt.Fprintf(&sb, "Component scores: vitals %.2f, symptoms %.2f, chronic %.2f, model probability %.2f.\n",
		a.SubScores.VitalAbnormalityScore, a.SubScores.CriticalSymptomScore,
		a.SubScores.ChronicConditionScore, a.SubScores.ModelProbabilityHighRisk)

	if len(a.Context.MatchedSymptoms) > 0 {
		keys := make([]string, 0, len(a.Context.MatchedSymptoms))
		for k := range a.Context.MatchedSymptoms {
			keys = append(keys, k)
		}
		fmt.Fprintf(&sb, "Recognized symptoms: %s.\n", strings.Join(keys, ", "))
	}
	if len(a.RecommendedTests) > 0 {
		fmt.Fprintf(&sb, "Recommended tests: %s.\n", strings.Join(a.RecommendedTests, ", "))
	}
	if a.Explainability.Reasoning != "" {
		fmt.Fprintf(&sb, "Scoring summary: %s\n", a.Explainability.Reasoning)
	}
	return sb.String()
}
