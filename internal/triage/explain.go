package triage

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// abnormalityWeight returns a monotonic transform of how far a feature value
// sits from its clinical baseline, in [0, inf). Binary flags contribute their
// own value; gender one-hots never contribute. The baselines match the
// transforms the synthetic training labels were generated from.
func abnormalityWeight(name string, value float64) float64 {
	switch name {
	case "age":
		return math.Max((value-45)/45, 0)
	case "systolic_bp":
		return math.Max((value-120)/60, 0)
	case "heart_rate":
		return math.Max((value-80)/60, 0)
	case "temperature":
		return math.Max((value-37.0)/3.0, 0)
	case "oxygen_saturation":
		return math.Max((95-value)/15, 0)
	case "respiratory_rate":
		return math.Max((value-18)/18, 0)
	case "gender_male", "gender_female":
		return 0
	default:
		return value
	}
}

// featureLabel renders a feature with its observed value embedded, e.g.
// "Oxygen Saturation (88%)". Binary flags render as plain condition names.
func featureLabel(name string, value float64) string {
	switch name {
	case "age":
		return fmt.Sprintf("Age (%d)", int(value))
	case "systolic_bp":
		return fmt.Sprintf("Systolic Blood Pressure (%d mmHg)", int(value))
	case "heart_rate":
		return fmt.Sprintf("Heart Rate (%d bpm)", int(value))
	case "temperature":
		return fmt.Sprintf("Temperature (%.1f°C)", value)
	case "oxygen_saturation":
		return fmt.Sprintf("Oxygen Saturation (%d%%)", int(value))
	case "respiratory_rate":
		return fmt.Sprintf("Respiratory Rate (%d/min)", int(value))
	default:
		return titleCase(strings.ReplaceAll(name, "_", " "))
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

const topContributors = 4

// genericContributors is the fixed explanation used when no trained
// classifier is available to supply feature importances.
var genericContributors = []string{
	"oxygen_saturation", "systolic_bp", "heart_rate", "temperature",
}

// buildExplanation ranks contributing features by importance weighted by how
// abnormal each observed value is, keeps the positive contributions, and
// renders the top entries with a reasoning sentence.
func buildExplanation(f *FeatureVector, importances []float64, a *Assessment) Explanation {
	var contributions []FeatureContribution

	if len(importances) == len(FeatureNames) {
		vals := f.Values()
		for i, name := range FeatureNames {
			value := float64(vals[i])
			c := importances[i] * abnormalityWeight(name, value)
			if c <= 0 {
				continue
			}
			contributions = append(contributions, FeatureContribution{
				Feature:      name,
				Label:        featureLabel(name, value),
				Value:        value,
				Contribution: c,
			})
		}
		sort.SliceStable(contributions, func(i, j int) bool {
			return contributions[i].Contribution > contributions[j].Contribution
		})
		if len(contributions) > topContributors {
			contributions = contributions[:topContributors]
		}
	} else {
		for _, name := range genericContributors {
			value := f.valueByName(name)
			contributions = append(contributions, FeatureContribution{
				Feature: name,
				Label:   featureLabel(name, value),
				Value:   value,
			})
		}
	}

	return Explanation{
		TopContributingFeatures: contributions,
		Reasoning:               reasoning(a),
	}
}

// reasoning states the risk level, the numeric score, and the component
// scores that produced it, with a note when the neuro compensation fired.
func reasoning(a *Assessment) string {
	s := fmt.Sprintf(
		"%s risk with priority score %.2f, combining vital abnormality %.2f, critical symptom score %.2f, and chronic condition burden %.2f with a model high-risk probability of %.2f.",
		a.RiskLevel, a.PriorityScore,
		a.SubScores.VitalAbnormalityScore,
		a.SubScores.CriticalSymptomScore,
		a.SubScores.ChronicConditionScore,
		a.SubScores.ModelProbabilityHighRisk,
	)
	if a.SubScores.NeuroModifier > 0 {
		s += " Stroke history with active neurological symptoms raised the minimum priority."
	}
	return s
}
