package research

import (
	"fmt"
	"strings"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/search"
)

// SignInHint answers guest questions when no report is loaded.
const SignInHint = "No report is loaded yet. Sign in to ask follow-up questions about this candidate."

type section struct {
	label string
	text  string
}

func sections(r *model.Report) []section {
	return []section{
		{"Position", r.Position},
		{"Background", r.Background},
		{"Accomplishments", r.Accomplishments},
		{"Criticisms", r.Criticisms},
		{"Summary", r.Summary},
	}
}

// guestAnswer picks the report section that best matches the question.
// A whole-word hit counts twice a substring hit. Ties go to the earlier
// section; with no hits at all the summary is used.
func guestAnswer(r *model.Report, question string) string {
	if r == nil {
		return SignInHint
	}

	terms := search.Terms(question)
	var best *section
	bestScore := 0
	secs := sections(r)
	for i := range secs {
		s := &secs[i]
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		if score := sectionScore(s.text, terms); score > bestScore {
			best, bestScore = s, score
		}
	}

	if best == nil {
		for i := len(secs) - 1; i >= 0; i-- {
			if strings.TrimSpace(secs[i].text) != "" {
				best = &secs[i]
				break
			}
		}
	}
	if best == nil {
		return SignInHint
	}
	return fmt.Sprintf("%s: %s", best.label, strings.TrimSpace(best.text))
}

func sectionScore(text string, terms []string) int {
	norm := search.Normalize(text)
	words := make(map[string]bool)
	for _, w := range strings.Fields(norm) {
		words[w] = true
	}

	score := 0
	for _, t := range terms {
		switch {
		case words[t]:
			score += 2
		case strings.Contains(norm, t):
			score++
		}
	}
	return score
}
