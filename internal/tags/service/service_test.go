package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/tags/agent"
	"marketplace_backend/internal/tags/ports"
	"marketplace_backend/internal/tags/repository"
	"marketplace_backend/internal/tags/transport"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/logger"
)

type fakeRepo struct {
	tags         map[string]repository.Tag
	requests     map[uuid.UUID]repository.TaggingSubject
	licenses     []repository.License
	requestLinks map[uuid.UUID][]uuid.UUID
	licenseLinks map[uuid.UUID][]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tags:         map[string]repository.Tag{},
		requests:     map[uuid.UUID]repository.TaggingSubject{},
		requestLinks: map[uuid.UUID][]uuid.UUID{},
		licenseLinks: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeRepo) TagsExist(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	found := map[uuid.UUID]struct{}{}
	for _, t := range f.tags {
		for _, id := range ids {
			if t.ID == id {
				found[id] = struct{}{}
			}
		}
	}
	return found, nil
}

func (f *fakeRepo) List(context.Context) ([]repository.Tag, error) {
	var out []repository.Tag
	for _, t := range f.tags {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) ListNames(context.Context, int) ([]string, error) {
	var out []string
	for _, t := range f.tags {
		out = append(out, t.Name)
	}
	return out, nil
}

func (f *fakeRepo) ListLicenseTags(context.Context, uuid.UUID) ([]repository.Tag, error) {
	return nil, nil
}

func (f *fakeRepo) CreateOrGet(_ context.Context, slug, name, description string) (repository.Tag, error) {
	if t, ok := f.tags[slug]; ok {
		return t, nil
	}
	t := repository.Tag{ID: uuid.New(), Slug: slug, Name: name, Description: description}
	f.tags[slug] = t
	return t, nil
}

func (f *fakeRepo) RequestSubject(_ context.Context, id uuid.UUID) (repository.TaggingSubject, error) {
	s, ok := f.requests[id]
	if !ok {
		return repository.TaggingSubject{}, errors.New("not found")
	}
	return s, nil
}

func (f *fakeRepo) LicenseSubject(_ context.Context, id uuid.UUID) (repository.TaggingSubject, error) {
	for _, l := range f.licenses {
		if l.ID == id {
			return repository.TaggingSubject{Title: l.Title, Description: l.Description}, nil
		}
	}
	return repository.TaggingSubject{}, errors.New("not found")
}

func (f *fakeRepo) LinkRequestTag(_ context.Context, requestID, tagID uuid.UUID, _ float64) error {
	f.requestLinks[requestID] = append(f.requestLinks[requestID], tagID)
	return nil
}

func (f *fakeRepo) LinkLicenseTag(_ context.Context, licenseID, tagID uuid.UUID, _ float64) error {
	f.licenseLinks[licenseID] = append(f.licenseLinks[licenseID], tagID)
	return nil
}

func (f *fakeRepo) CreateLicense(_ context.Context, l repository.License) error {
	f.licenses = append(f.licenses, l)
	return nil
}

type stubSuggester struct {
	out    []agent.Suggestion
	err    error
	prompt string
}

func (s *stubSuggester) SuggestTags(_ context.Context, prompt string, _ []string) ([]agent.Suggestion, error) {
	s.prompt = prompt
	return s.out, s.err
}

type stubProviders struct {
	id  uuid.UUID
	err error
}

func (s stubProviders) ActiveProviderID(context.Context, uuid.UUID) (uuid.UUID, error) {
	return s.id, s.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type failingScheduler struct{ calls int }

func (s *failingScheduler) EnqueueAutoTag(context.Context, string, uuid.UUID) error {
	s.calls++
	return errors.New("redis down")
}

func TestMissingTagsReportsEveryUnknownID(t *testing.T) {
	repo := newFakeRepo()
	known, _ := repo.CreateOrGet(context.Background(), "plomero", "Plomero", "")
	a, b := uuid.New(), uuid.New()

	svc := New(repo, nil, stubProviders{}, &recordingBus{}, logger.Discard())
	missing, err := svc.MissingTags(context.Background(), []uuid.UUID{known.ID, a, b, a})
	if err != nil {
		t.Fatalf("missing tags: %v", err)
	}
	if len(missing) != 2 || missing[0] != a || missing[1] != b {
		t.Fatalf("expected [%s %s], got %v", a, b, missing)
	}
}

func TestAutoTagRequestLinksSuggestedTags(t *testing.T) {
	repo := newFakeRepo()
	existing, _ := repo.CreateOrGet(context.Background(), "plomero", "Plomero", "")
	requestID := uuid.New()
	repo.requests[requestID] = repository.TaggingSubject{Title: "[FAST] canilla", Description: "pierde agua"}

	suggester := &stubSuggester{out: []agent.Suggestion{
		{Profession: "Plomero", Confidence: 0.9},
		{Profession: "Gasista  Matriculado", Confidence: 0.6},
		{Profession: "plomero", Confidence: 0.7},
		{Profession: "!!!", Confidence: 0.8},
	}}
	svc := New(repo, suggester, stubProviders{}, &recordingBus{}, logger.Discard())

	if err := svc.AutoTagRequest(context.Background(), requestID); err != nil {
		t.Fatalf("auto tag: %v", err)
	}

	links := repo.requestLinks[requestID]
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0] != existing.ID {
		t.Fatalf("expected existing tag to be reused")
	}
	if _, ok := repo.tags["gasista-matriculado"]; !ok {
		t.Fatalf("expected new tag slug gasista-matriculado")
	}
	if suggester.prompt != "[FAST] canilla\n\npierde agua" {
		t.Fatalf("unexpected prompt %q", suggester.prompt)
	}
}

func TestAutoTagRequestSkipsTaggedRequests(t *testing.T) {
	repo := newFakeRepo()
	requestID := uuid.New()
	repo.requests[requestID] = repository.TaggingSubject{Description: "x", Tagged: true}
	suggester := &stubSuggester{}

	svc := New(repo, suggester, stubProviders{}, &recordingBus{}, logger.Discard())
	if err := svc.AutoTagRequest(context.Background(), requestID); err != nil {
		t.Fatalf("auto tag: %v", err)
	}
	if suggester.prompt != "" {
		t.Fatalf("expected generator not to be called")
	}
}

func TestScheduleTaggingFallsBackInlineAndSwallowsErrors(t *testing.T) {
	repo := newFakeRepo()
	requestID := uuid.New()
	repo.requests[requestID] = repository.TaggingSubject{Description: "pintar living"}

	suggester := &stubSuggester{out: []agent.Suggestion{{Profession: "Pintor", Confidence: 1}}}
	scheduler := &failingScheduler{}
	svc := New(repo, suggester, stubProviders{}, &recordingBus{}, logger.Discard())
	svc.SetScheduler(scheduler)

	svc.ScheduleTagging(context.Background(), ports.TargetRequest, requestID)
	if scheduler.calls != 1 || len(repo.requestLinks[requestID]) != 1 {
		t.Fatalf("expected inline fallback, calls=%d links=%d", scheduler.calls, len(repo.requestLinks[requestID]))
	}

	suggester.err = errors.New("model unavailable")
	other := uuid.New()
	repo.requests[other] = repository.TaggingSubject{Description: "otra"}
	svc.ScheduleTagging(context.Background(), ports.TargetRequest, other)
	if len(repo.requestLinks[other]) != 0 {
		t.Fatalf("expected no links when the model fails")
	}
}

func TestAutoTagWithoutSuggesterIsNoop(t *testing.T) {
	svc := New(newFakeRepo(), nil, stubProviders{}, &recordingBus{}, logger.Discard())
	if err := svc.AutoTag(context.Background(), ports.TargetRequest, uuid.New()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestCreateLicensePublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	providerID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	svc := New(repo, nil, stubProviders{id: providerID}, bus, logger.Discard())
	svc.now = clock.Fixed(now)

	resp, err := svc.CreateLicense(context.Background(), uuid.New(), transport.CreateLicenseRequest{
		Title:       "  Matrícula   de <b>gasista</b> ",
		Description: "Categoría 1",
	})
	if err != nil {
		t.Fatalf("create license: %v", err)
	}
	if resp.Title != "Matrícula de gasista" || resp.ProviderID != providerID || !resp.CreatedAt.Equal(now) {
		t.Fatalf("unexpected license %+v", resp)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.ProviderLicenseCreated)
	if !ok || evt.LicenseID != resp.ID {
		t.Fatalf("unexpected event %+v", bus.published[0])
	}
}

func TestCreateLicenseRejectsNonProviders(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil, stubProviders{err: errors.New("forbidden")}, &recordingBus{}, logger.Discard())
	if _, err := svc.CreateLicense(context.Background(), uuid.New(), transport.CreateLicenseRequest{Title: "abc"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.licenses) != 0 {
		t.Fatalf("expected no license stored")
	}
}
