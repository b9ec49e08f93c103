// Package llm generates quiz payloads and related-topics lists from
// article content via the Gemini API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

// Generator produces quiz content from article text. Implementations may
// call out to a remote model; failures are returned as-is and the caller
// decides how to surface them.
type Generator interface {
	GenerateQuiz(ctx context.Context, bodyText, title, summary string, sections []string) (quiz.RawPayload, error)
	GenerateRelatedTopics(ctx context.Context, bodyText, title, summary string, sections []string) ([]string, error)
}

const (
	defaultModel   = "gemini-1.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// Article text is truncated before prompting; the two prompts carry
	// different budgets, matching the token envelope of the model.
	quizTextLimit   = 12000
	topicsTextLimit = 8000
)

const quizPrompt = `You are a quiz writer. Based on the Wikipedia article below, create a quiz of 5 multiple-choice questions.

Respond with ONLY a JSON object of this exact shape, no prose or code fences:
{
  "key_entities": {"people": [], "organizations": [], "locations": []},
  "quiz": [
    {"question": "...", "options": ["...", "...", "...", "..."], "answer": "...", "difficulty": "easy|medium|hard", "explanation": "...", "section": "..."}
  ]
}

Title: %s
Summary: %s
Sections: %s
Article text: %s`

const relatedTopicsPrompt = `Based on the Wikipedia article below, suggest 3 to 5 related topics a reader might explore next.

Respond with ONLY a JSON object of this exact shape, no prose or code fences:
{"related_topics": ["...", "..."]}

Title: %s
Summary: %s
Sections: %s
Article text: %s`

// Gemini is a Generator backed by the Gemini generateContent endpoint.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini generator. An empty apiKey is a
// configuration error: callers that want the deterministic fallback
// payload hold a nil Generator instead.
func NewGemini(apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator not configured: missing API key")
	}
	if model == "" {
		model = defaultModel
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// GenerateQuiz asks the model for a quiz payload. The returned payload is
// raw: callers must normalize it before persisting.
func (g *Gemini) GenerateQuiz(ctx context.Context, bodyText, title, summary string, sections []string) (quiz.RawPayload, error) {
	prompt := fmt.Sprintf(quizPrompt, title, summary, strings.Join(sections, ", "), truncate(bodyText, quizTextLimit))

	text, err := g.call(ctx, prompt)
	if err != nil {
		return quiz.RawPayload{}, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return quiz.RawPayload{}, fmt.Errorf("quiz response: %w", err)
	}

	var payload quiz.RawPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return quiz.RawPayload{}, fmt.Errorf("decode quiz response: %w", err)
	}
	return payload, nil
}

// GenerateRelatedTopics asks the model for related topics.
func (g *Gemini) GenerateRelatedTopics(ctx context.Context, bodyText, title, summary string, sections []string) ([]string, error) {
	prompt := fmt.Sprintf(relatedTopicsPrompt, title, summary, strings.Join(sections, ", "), truncate(bodyText, topicsTextLimit))

	text, err := g.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("related topics response: %w", err)
	}

	var resp struct {
		RelatedTopics []string `json:"related_topics"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode related topics response: %w", err)
	}
	return resp.RelatedTopics, nil
}

// SetBaseURL overrides the API base URL (for testing).
func (g *Gemini) SetBaseURL(url string) {
	g.baseURL = strings.TrimSuffix(url, "/")
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini API %d: %s", resp.StatusCode, string(b))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", err
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON recovers the JSON object from a model response that may be
// wrapped in code fences or prose: everything between the first '{' and
// the last '}' is taken.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("response did not contain JSON")
	}
	return json.RawMessage(text[start : end+1]), nil
}

// truncate caps s at limit runes, never splitting a multi-byte sequence.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
