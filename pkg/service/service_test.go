package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wikiquiz/quizgen/pkg/cache"
	"github.com/wikiquiz/quizgen/pkg/quiz"
	"github.com/wikiquiz/quizgen/pkg/scrape"
	"github.com/wikiquiz/quizgen/pkg/store"
)

const testURL = "https://en.wikipedia.org/wiki/Alan_Turing"

// --- test doubles ---

type fakeFetcher struct {
	calls   int
	article *scrape.Article
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*scrape.Article, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.article, nil
}

type fakeGenerator struct {
	quizCalls   int
	topicsCalls int
	payload     quiz.RawPayload
	topics      []string
	quizErr     error
	topicsErr   error
}

func (g *fakeGenerator) GenerateQuiz(ctx context.Context, bodyText, title, summary string, sections []string) (quiz.RawPayload, error) {
	g.quizCalls++
	if g.quizErr != nil {
		return quiz.RawPayload{}, g.quizErr
	}
	return g.payload, nil
}

func (g *fakeGenerator) GenerateRelatedTopics(ctx context.Context, bodyText, title, summary string, sections []string) ([]string, error) {
	g.topicsCalls++
	if g.topicsErr != nil {
		return nil, g.topicsErr
	}
	return g.topics, nil
}

// fakeRepo is an in-memory Repository with create/update counters.
type fakeRepo struct {
	entries map[string]*quiz.Entry
	nextID  int64

	findCalls   int
	createCalls int
	updateCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[string]*quiz.Entry), nextID: 1}
}

func (r *fakeRepo) FindByURL(ctx context.Context, url string) (*quiz.Entry, error) {
	r.findCalls++
	if e, ok := r.entries[url]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) FindByID(ctx context.Context, id int64) (*quiz.Entry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) List(ctx context.Context) ([]*quiz.Entry, error) {
	var out []*quiz.Entry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeRepo) Create(ctx context.Context, data quiz.EntryData) (*quiz.Entry, error) {
	r.createCalls++
	if existing, ok := r.entries[data.URL]; ok {
		// storage-layer conflict merge keeps identity
		updated := entryFromData(existing.ID, data)
		updated.CreatedAt = existing.CreatedAt
		r.entries[data.URL] = updated
		return updated, nil
	}
	entry := entryFromData(r.nextID, data)
	r.nextID++
	r.entries[data.URL] = entry
	return entry, nil
}

func (r *fakeRepo) Update(ctx context.Context, existing *quiz.Entry, data quiz.EntryData) (*quiz.Entry, error) {
	r.updateCalls++
	if _, ok := r.entries[existing.URL]; !ok {
		return nil, store.ErrNotFound
	}
	updated := entryFromData(existing.ID, data)
	updated.CreatedAt = existing.CreatedAt
	r.entries[existing.URL] = updated
	return updated, nil
}

func entryFromData(id int64, data quiz.EntryData) *quiz.Entry {
	return &quiz.Entry{
		ID:            id,
		URL:           data.URL,
		Title:         data.Title,
		Summary:       data.Summary,
		KeyEntities:   data.KeyEntities,
		Sections:      data.Sections,
		Quiz:          data.Quiz,
		RelatedTopics: data.RelatedTopics,
		CreatedAt:     time.Now(),
	}
}

func testArticle() *scrape.Article {
	return &scrape.Article{
		Title:    "Alan Turing",
		Summary:  "English mathematician.",
		Sections: []string{"Early life", "Career"},
		BodyText: "Alan Turing was an English mathematician and computer scientist.",
	}
}

func testPayload() quiz.RawPayload {
	return quiz.RawPayload{
		Quiz: []quiz.RawQuestion{
			{
				Question: "Where did Turing study?",
				Options:  []string{"Cambridge", "Oxford"},
				Answer:   "Cambridge",
			},
		},
	}
}

func newTestService(t *testing.T) (*Service, *cache.MemoryStore, *fakeRepo, *fakeFetcher, *fakeGenerator) {
	t.Helper()

	memCache := cache.NewMemoryStore(time.Hour)
	repo := newFakeRepo()
	fetcher := &fakeFetcher{article: testArticle()}
	generator := &fakeGenerator{payload: testPayload(), topics: []string{"Cryptography"}}

	return New(memCache, repo, fetcher, generator), memCache, repo, fetcher, generator
}

// --- scenarios ---

// A fresh cache entry is served without touching fetcher or generator.
func TestGenerate_CacheHit(t *testing.T) {
	svc, memCache, _, fetcher, generator := newTestService(t)
	ctx := context.Background()

	cached := &quiz.Entry{ID: 1, URL: testURL, Title: "Cached"}
	if err := memCache.Set(ctx, cache.DeriveKey(testURL), cached); err != nil {
		t.Fatalf("seeding cache failed: %v", err)
	}

	got, err := svc.Generate(ctx, testURL, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if got != cached {
		t.Errorf("expected the cached entry, got %+v", got)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times on cache hit", fetcher.calls)
	}
	if generator.quizCalls != 0 || generator.topicsCalls != 0 {
		t.Errorf("generator called on cache hit (%d quiz, %d topics)", generator.quizCalls, generator.topicsCalls)
	}
}

// With an empty cache, a stored record is served and written back to the
// cache for the next request.
func TestGenerate_StoreHitWarmsCache(t *testing.T) {
	svc, memCache, repo, fetcher, _ := newTestService(t)
	ctx := context.Background()

	stored, err := repo.Create(ctx, quiz.EntryData{URL: testURL, Title: "Stored"})
	if err != nil {
		t.Fatalf("seeding repo failed: %v", err)
	}

	got, err := svc.Generate(ctx, testURL, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if got.ID != stored.ID {
		t.Errorf("expected stored entry id %d, got %d", stored.ID, got.ID)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times on store hit", fetcher.calls)
	}

	warmed, err := memCache.Get(ctx, cache.DeriveKey(testURL))
	if err != nil {
		t.Fatalf("cache not warmed after store hit: %v", err)
	}
	if warmed.ID != stored.ID {
		t.Errorf("cache holds id %d, want %d", warmed.ID, stored.ID)
	}
}

func TestGenerate_FreshGeneration(t *testing.T) {
	svc, memCache, repo, fetcher, generator := newTestService(t)
	ctx := context.Background()

	got, err := svc.Generate(ctx, testURL, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if generator.quizCalls != 1 || generator.topicsCalls != 1 {
		t.Errorf("generator calls = %d quiz / %d topics, want 1/1", generator.quizCalls, generator.topicsCalls)
	}
	if repo.createCalls != 1 {
		t.Errorf("create calls = %d, want 1", repo.createCalls)
	}

	// options were normalized to exactly four
	if len(got.Quiz) != 1 || len(got.Quiz[0].Options) != 4 {
		t.Errorf("persisted quiz not normalized: %+v", got.Quiz)
	}

	if _, err := memCache.Get(ctx, cache.DeriveKey(testURL)); err != nil {
		t.Errorf("result not cached: %v", err)
	}
}

// Force refresh must update the existing row in place, keeping its id;
// the natural key stays unique.
func TestGenerate_ForceRefreshReusesIdentity(t *testing.T) {
	svc, _, repo, fetcher, _ := newTestService(t)
	ctx := context.Background()

	seeded, err := repo.Create(ctx, quiz.EntryData{URL: testURL, Title: "Old"})
	if err != nil {
		t.Fatalf("seeding repo failed: %v", err)
	}
	// make identity distinctive
	seeded.ID = 7
	repo.entries[testURL] = seeded

	got, err := svc.Generate(ctx, testURL, true)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if got.ID != 7 {
		t.Errorf("force refresh changed identity: id = %d, want 7", got.ID)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if repo.updateCalls != 1 || repo.createCalls != 1 /* seed only */ {
		t.Errorf("expected update-in-place, got %d creates / %d updates", repo.createCalls, repo.updateCalls)
	}

	persisted, err := repo.FindByURL(ctx, testURL)
	if err != nil {
		t.Fatalf("FindByURL after refresh failed: %v", err)
	}
	if persisted.ID != 7 {
		t.Errorf("persisted id = %d, want 7", persisted.ID)
	}
}

// Force refresh bypasses a fresh cache entry.
func TestGenerate_ForceBypassesCache(t *testing.T) {
	svc, memCache, _, fetcher, _ := newTestService(t)
	ctx := context.Background()

	if err := memCache.Set(ctx, cache.DeriveKey(testURL), &quiz.Entry{ID: 1, URL: testURL, Title: "Cached"}); err != nil {
		t.Fatalf("seeding cache failed: %v", err)
	}

	got, err := svc.Generate(ctx, testURL, true)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1 despite cached entry", fetcher.calls)
	}
	if got.Title == "Cached" {
		t.Error("force refresh served the cached entry")
	}
}

func TestGenerate_FetchFailure(t *testing.T) {
	svc, memCache, repo, fetcher, generator := newTestService(t)
	fetcher.err = fmt.Errorf("article not reachable")
	ctx := context.Background()

	_, err := svc.Generate(ctx, testURL, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindClientInput {
		t.Errorf("error kind = %q, want %q", KindOf(err), KindClientInput)
	}

	// no partial state
	if generator.quizCalls != 0 {
		t.Errorf("generator called after fetch failure")
	}
	if repo.createCalls != 0 {
		t.Errorf("record persisted after fetch failure")
	}
	if _, err := memCache.Get(ctx, cache.DeriveKey(testURL)); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("cache written after fetch failure")
	}
}

func TestGenerate_GeneratorFailure(t *testing.T) {
	tests := []struct {
		name      string
		quizErr   error
		topicsErr error
	}{
		{name: "quiz generation fails", quizErr: fmt.Errorf("model overloaded")},
		{name: "related topics fail", topicsErr: fmt.Errorf("model overloaded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, memCache, repo, _, generator := newTestService(t)
			generator.quizErr = tt.quizErr
			generator.topicsErr = tt.topicsErr
			ctx := context.Background()

			_, err := svc.Generate(ctx, testURL, false)
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != KindUpstream {
				t.Errorf("error kind = %q, want %q", KindOf(err), KindUpstream)
			}
			if repo.createCalls != 0 || repo.updateCalls != 0 {
				t.Error("record persisted after generator failure")
			}
			if _, err := memCache.Get(ctx, cache.DeriveKey(testURL)); !errors.Is(err, cache.ErrMiss) {
				t.Error("cache written after generator failure")
			}
		})
	}
}

// A nil generator means "not configured": the deterministic fallback is
// used and no error is raised.
func TestGenerate_NoGeneratorUsesFallback(t *testing.T) {
	memCache := cache.NewMemoryStore(time.Hour)
	repo := newFakeRepo()
	fetcher := &fakeFetcher{article: testArticle()}
	svc := New(memCache, repo, fetcher, nil)

	got, err := svc.Generate(context.Background(), testURL, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// one question per article section
	if len(got.Quiz) != 2 {
		t.Fatalf("expected 2 fallback questions, got %d", len(got.Quiz))
	}
	if got.Quiz[0].Section != "Early life" {
		t.Errorf("first fallback section = %q", got.Quiz[0].Section)
	}
	want := quiz.FallbackRelatedTopics()
	if len(got.RelatedTopics) != len(want) || got.RelatedTopics[0] != want[0] {
		t.Errorf("related topics = %v, want %v", got.RelatedTopics, want)
	}
}

func TestDetail_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Detail(context.Background(), 99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "classified", err: newError(KindUpstream, "generate", fmt.Errorf("boom")), want: KindUpstream},
		{name: "wrapped", err: fmt.Errorf("outer: %w", newError(KindClientInput, "fetch", fmt.Errorf("bad url"))), want: KindClientInput},
		{name: "plain", err: fmt.Errorf("boom"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
