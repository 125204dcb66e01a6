package triage

import (
	"sort"
	"strings"
)

// symptomKeywords maps each canonical symptom to the raw-text synonyms that
// identify it. Matching is case-insensitive substring containment, no
// stemming or fuzzy matching. Every canonical term is its own synonym so
// re-extracting an already-canonicalized token list is stable.
var symptomKeywords = map[string][]string{
	"chest pain":            {"chest pain", "angina", "chest tightness", "chest discomfort"},
	"difficulty breathing":  {"difficulty breathing", "shortness of breath", "dyspnea", "breathless", "wheezing"},
	"severe headache":       {"severe headache", "migraine", "head pain", "thunderclap headache"},
	"abdominal pain":        {"abdominal pain", "stomach pain", "belly pain", "epigastric pain"},
	"fever":                 {"fever", "febrile", "high temperature", "chills"},
	"nausea":                {"nausea", "vomiting", "queasy", "emesis"},
	"dizziness":             {"dizziness", "vertigo", "lightheaded"},
	"confusion":             {"confusion", "disorientation", "altered mental status"},
	"loss of consciousness": {"loss of consciousness", "unconscious", "syncope", "passed out", "blackout"},
}

// conditionKeywords maps canonical chronic conditions to synonyms.
// "stroke history" and "copd" are context-only: they match without setting
// other_condition but have no column in the numeric feature vector.
var conditionKeywords = map[string][]string{
	"diabetes":       {"diabetes", "diabetic", "dm"},
	"hypertension":   {"hypertension", "high blood pressure", "htn"},
	"heart disease":  {"heart disease", "cad", "coronary artery disease", "mi", "myocardial infarction"},
	"asthma":         {"asthma"},
	"copd":           {"copd", "chronic obstructive pulmonary disease"},
	"kidney disease": {"kidney disease", "ckd", "chronic kidney disease", "renal failure"},
	"cancer":         {"cancer", "malignancy", "carcinoma"},
	"stroke history": {"stroke", "cva", "cerebrovascular accident"},
}

// Auxiliary token sets. These never set other_symptom; they exist to catch
// cardiac/neurological presentations outside the canonical symptom set and
// feed the department cascade and overrides.
var cardiacTokens = []string{
	"palpitations", "irregular heartbeat", "racing heart", "heart fluttering", "angina",
}

var neuroTokens = []string{
	"numbness", "weakness on one side", "slurred speech", "seizure", "vision loss", "facial droop",
}

// noneTokens are intake placeholders discarded without being counted as
// unmatched vocabulary.
var noneTokens = map[string]struct{}{
	"none": {}, "n/a": {}, "na": {}, "nil": {}, "no": {}, "nothing": {}, "-": {},
}

// tokenize flattens raw list entries into lowercase tokens, further splitting
// each entry on the usual intake delimiters and dropping placeholders.
func tokenize(items []string) []string {
	var out []string
	for _, item := range items {
		lowered := strings.ToLower(item)
		lowered = strings.ReplaceAll(lowered, ";", ",")
		lowered = strings.ReplaceAll(lowered, "/", ",")
		lowered = strings.ReplaceAll(lowered, "\n", ",")
		for _, tok := range strings.Split(lowered, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if _, skip := noneTokens[tok]; skip {
				continue
			}
			out = append(out, tok)
		}
	}
	return out
}

// matchTokens maps each token to the canonical terms whose synonyms it
// contains. Returns canonical -> matching raw tokens, plus the tokens that
// matched nothing.
func matchTokens(tokens []string, vocab map[string][]string) (matched map[string][]string, unmatched []string) {
	matched = make(map[string][]string)
	for _, tok := range tokens {
		hit := false
		for canonical, synonyms := range vocab {
			for _, syn := range synonyms {
				if strings.Contains(tok, syn) {
					matched[canonical] = appendUnique(matched[canonical], tok)
					hit = true
					break
				}
			}
		}
		if !hit {
			unmatched = appendUnique(unmatched, tok)
		}
	}
	return matched, unmatched
}

// matchText returns the canonical terms whose synonym list has at least one
// substring match in the (already extracted) document text.
func matchText(text string, vocab map[string][]string) []string {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return nil
	}
	var out []string
	for canonical, synonyms := range vocab {
		for _, syn := range synonyms {
			if strings.Contains(lowered, syn) {
				out = append(out, canonical)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// containsAnyToken reports whether any token contains one of the given
// substrings, used for the auxiliary cardiac/neuro sets.
func containsAnyToken(tokens []string, set []string) bool {
	for _, tok := range tokens {
		for _, s := range set {
			if strings.Contains(tok, s) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// dedupePreserve removes case-insensitive duplicates keeping first-seen order.
func dedupePreserve(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
