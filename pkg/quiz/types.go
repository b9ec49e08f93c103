// Package quiz defines the quiz domain types and the normalization and
// fallback rules applied to generator output before it is persisted or cached.
package quiz

import "time"

// Question is a single multiple-choice question. After normalization
// Options always holds exactly four entries.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation"`
	Section     string   `json:"section"`
}

// KeyEntities groups the named entities extracted from an article.
type KeyEntities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

// Entry is one persisted quiz derived from a single source article.
// URL is the natural key: unique across all persisted entries.
type Entry struct {
	ID            int64       `json:"id"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	Summary       string      `json:"summary"`
	KeyEntities   KeyEntities `json:"key_entities"`
	Sections      []string    `json:"sections"`
	Quiz          []Question  `json:"quiz"`
	RelatedTopics []string    `json:"related_topics"`
	CreatedAt     time.Time   `json:"created_at"`
}

// EntryData carries the fields of an Entry that the generation flow
// produces; identity (ID, CreatedAt) is assigned by the repository.
type EntryData struct {
	URL           string
	Title         string
	Summary       string
	KeyEntities   KeyEntities
	Sections      []string
	Quiz          []Question
	RelatedTopics []string
}

// RawQuestion is an unvalidated question as produced by the generator.
// Any field may be missing or malformed; NormalizeQuestions fixes it up.
type RawQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation"`
	Section     string   `json:"section"`
}

// RawPayload is the untrusted quiz payload returned by the generator.
type RawPayload struct {
	KeyEntities KeyEntities   `json:"key_entities"`
	Quiz        []RawQuestion `json:"quiz"`
}
