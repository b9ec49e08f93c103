package quiz

import (
	"fmt"
	"strings"
)

const (
	// OptionCount is the fixed number of options per question.
	OptionCount = 4

	// PlaceholderOption pads short option lists up to OptionCount.
	PlaceholderOption = "Option"

	defaultDifficulty = "medium"
	defaultSection    = "General"
)

// defaultFallbackSections is used when an article has no section headings.
var defaultFallbackSections = []string{"Overview", "Background", "Legacy", "Impact", "Details"}

// NormalizeQuestions enforces the structural invariants on raw generator
// output: exactly OptionCount options per question (longer lists are
// truncated, shorter lists padded with PlaceholderOption) and named
// defaults for missing fields. Item order is preserved and the transform
// is idempotent on already-normalized input.
func NormalizeQuestions(raw []RawQuestion) []Question {
	normalized := make([]Question, 0, len(raw))
	for _, item := range raw {
		options := item.Options
		if len(options) > OptionCount {
			options = options[:OptionCount]
		}
		out := make([]string, len(options), OptionCount)
		copy(out, options)
		for len(out) < OptionCount {
			out = append(out, PlaceholderOption)
		}

		difficulty := item.Difficulty
		if difficulty == "" {
			difficulty = defaultDifficulty
		}
		section := item.Section
		if section == "" {
			section = defaultSection
		}

		normalized = append(normalized, Question{
			Question:    item.Question,
			Options:     out,
			Answer:      item.Answer,
			Difficulty:  difficulty,
			Explanation: item.Explanation,
			Section:     section,
		})
	}
	return normalized
}

// FallbackPayload builds a deterministic quiz without calling the
// generator. It is used when no generator credential is configured; it is
// not a recovery path for failed generation attempts.
//
// One question is emitted per section, up to five. Articles without
// sections get the fixed default section list. Every question carries
// exactly four options by construction.
func FallbackPayload(summary string, sections []string) RawPayload {
	base := sections
	if len(base) > 5 {
		base = base[:5]
	}
	if len(base) == 0 {
		base = defaultFallbackSections
	}

	questions := make([]RawQuestion, 0, len(base))
	for i, section := range base {
		idx := i + 1
		difficulty := "easy"
		if idx >= 3 {
			difficulty = "medium"
		}
		questions = append(questions, RawQuestion{
			Question:    fmt.Sprintf("Which section discusses %s?", strings.ToLower(section)),
			Options:     []string{"Introduction", section, "References", "See also"},
			Answer:      section,
			Difficulty:  difficulty,
			Explanation: fmt.Sprintf("This question relates to the '%s' section.", section),
			Section:     section,
		})
	}

	return RawPayload{
		KeyEntities: KeyEntities{
			People:        []string{},
			Organizations: []string{},
			Locations:     []string{},
		},
		Quiz: questions,
	}
}

// FallbackRelatedTopics returns the fixed related-topics list used when no
// generator credential is configured.
func FallbackRelatedTopics() []string {
	return []string{"Computer science", "History", "Mathematics"}
}
