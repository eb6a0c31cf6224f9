package note

import (
	"math"
	"regexp"
	"strings"
)

// Result is the outcome of rule-based scoring of an owner note.
type Result struct {
	Keywords  []string `json:"keywords"`
	Modifiers []string `json:"modifiers_detected"`
	Severity  float64  `json:"severity_score"`
	Note      string   `json:"notes,omitempty"`
}

// concept is one symptom or context category with its keyword variants.
type concept struct {
	name     string
	weight   float64
	symptom  bool // symptom concepts are subject to negation
	patterns []pattern
}

type pattern struct {
	re *regexp.Regexp
	// negated matches "no <first word of the pattern>" etc anywhere in the
	// text. Only the first word is checked, so multi-word patterns can be
	// suppressed by a negation aimed at a different mention.
	negated *regexp.Regexp
}

// modifier is an intensity cue that adds a fixed weight at most once.
type modifier struct {
	name   string
	weight float64
	re     *regexp.Regexp
}

const defaultConceptWeight = 0.10

// scoringNote describes the method behind every non-empty result.
const scoringNote = "rule-based keyword scoring with negation handling and intensity modifiers"

// Scorer holds the compiled concept and modifier rules.
// All keyword and weight definitions live in NewScorer.
type Scorer struct {
	concepts  []concept
	modifiers []modifier
}

// NewScorer compiles the rule set for kennel-cough symptom notes.
func NewScorer() *Scorer {
	return &Scorer{
		concepts: []concept{
			newConcept("cough", 0.25, true, "cough", "coughing", "hacking", "hack"),
			newConcept("gagging", 0.20, true, "gag", "gagging", "retch", "retching"),
			newConcept("sneeze", 0.10, true, "sneeze", "sneezing"),
			newConcept("lethargy", 0.20, true, "lethargy", "lethargic", "low energy", "tired", "fatigue", "weak"),
			newConcept("daycare", 0.10, false, "daycare", "kennel", "boarding", "grooming"),
			newConcept("appetite_loss", 0.25, true, "not eating", "loss of appetite", "no appetite", "poor appetite"),
		},
		modifiers: []modifier{
			{name: "frequent", weight: 0.15, re: regexp.MustCompile(`\bfrequent\b|\boften\b|\brepeated\b|\bmany\b|\bseveral\b`)},
			{name: "daily/multiple", weight: 0.15, re: regexp.MustCompile(`\bmultiple times\b|\bevery day\b|\bdaily\b`)},
			{name: "night", weight: 0.10, re: regexp.MustCompile(`\bat night\b|\bnight\b|\bkeeping us up\b`)},
			{name: "dry/hacking", weight: 0.10, re: regexp.MustCompile(`\bdry\b|\bhacking\b|\bchoking\b`)},
		},
	}
}

func newConcept(name string, weight float64, symptom bool, phrases ...string) concept {
	c := concept{name: name, weight: weight, symptom: symptom}
	for _, p := range phrases {
		pat := pattern{re: regexp.MustCompile(`\b` + p + `\b`)}
		if symptom {
			token := strings.Fields(p)[0]
			pat.negated = regexp.MustCompile(
				`\b(?:no|not|without|doesn['’]?t|didn['’]?t)\s+` + token + `\b`)
		}
		c.patterns = append(c.patterns, pat)
	}
	return c
}

// Score analyzes a free-form owner note. It never fails: empty or
// whitespace-only input yields a zero result with an explanatory note.
func (s *Scorer) Score(ownerNote string) *Result {
	text := strings.ToLower(strings.TrimSpace(ownerNote))
	if text == "" {
		return &Result{
			Keywords:  []string{},
			Modifiers: []string{},
			Severity:  0,
			Note:      "no owner note provided",
		}
	}

	var detected []string
	for _, c := range s.concepts {
		for _, p := range c.patterns {
			if !p.re.MatchString(text) {
				continue
			}
			if c.symptom && p.negated.MatchString(text) {
				continue
			}
			detected = append(detected, c.name)
			break
		}
	}

	keywords := dedupe(detected)

	mods := []string{}
	var intensity float64
	for _, m := range s.modifiers {
		if m.re.MatchString(text) {
			mods = append(mods, m.name)
			intensity += m.weight
		}
	}

	var severity float64
	for _, k := range keywords {
		severity += s.conceptWeight(k)
	}
	severity += intensity
	severity = math.Min(1, round3(severity))

	return &Result{
		Keywords:  keywords,
		Modifiers: mods,
		Severity:  severity,
		Note:      scoringNote,
	}
}

func (s *Scorer) conceptWeight(name string) float64 {
	for _, c := range s.concepts {
		if c.name == name {
			return c.weight
		}
	}
	return defaultConceptWeight
}

// dedupe removes repeats while preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Summary renders a short human-readable keyword list, e.g. "cough, daycare".
func (r *Result) Summary() string {
	if len(r.Keywords) == 0 {
		return "none"
	}
	return strings.Join(r.Keywords, ", ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
