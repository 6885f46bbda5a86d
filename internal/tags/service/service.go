// Package service owns the tag vocabulary and the LLM auto-tagging flow.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/tags/ports"
	"marketplace_backend/internal/tags/repository"
	"marketplace_backend/internal/tags/transport"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/sanitize"
)

// vocabularyHint caps how many existing names are sent to the model.
const vocabularyHint = 200

type Service struct {
	repo      repository.Repository
	suggester ports.Suggester
	providers ports.ProviderResolver
	eventBus  events.Bus
	scheduler ports.AutoTagScheduler
	log       *logger.Logger
	now       clock.Clock
}

// New builds the service. A nil suggester disables auto-tagging.
func New(repo repository.Repository, suggester ports.Suggester, providers ports.ProviderResolver, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		suggester: suggester,
		providers: providers,
		eventBus:  eventBus,
		log:       log,
		now:       clock.Now,
	}
}

// SetScheduler moves tagging onto the background worker.
func (s *Service) SetScheduler(scheduler ports.AutoTagScheduler) {
	s.scheduler = scheduler
}

// MissingTags returns every id in ids that is not in the vocabulary.
func (s *Service) MissingTags(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	found, err := s.repo.TagsExist(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Service) List(ctx context.Context) (transport.TagListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return transport.TagListResponse{}, err
	}
	resp := transport.TagListResponse{Items: make([]transport.TagResponse, 0, len(items))}
	for _, t := range items {
		resp.Items = append(resp.Items, toTagResponse(t))
	}
	return resp, nil
}

// CreateLicense registers a license for the calling provider. Tagging runs
// after the event is handled.
func (s *Service) CreateLicense(ctx context.Context, userID uuid.UUID, req transport.CreateLicenseRequest) (transport.LicenseResponse, error) {
	providerID, err := s.providers.ActiveProviderID(ctx, userID)
	if err != nil {
		return transport.LicenseResponse{}, err
	}

	license := repository.License{
		ID:          uuid.New(),
		ProviderID:  providerID,
		Title:       sanitize.CollapseSpaces(sanitize.Text(req.Title)),
		Description: sanitize.Text(req.Description),
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateLicense(ctx, license); err != nil {
		return transport.LicenseResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ProviderLicenseCreated{
		BaseEvent:  events.NewBaseEvent(license.CreatedAt),
		LicenseID:  license.ID,
		ProviderID: providerID,
	})

	return transport.LicenseResponse{
		ID:          license.ID,
		ProviderID:  license.ProviderID,
		Title:       license.Title,
		Description: license.Description,
		CreatedAt:   license.CreatedAt,
	}, nil
}

// ScheduleTagging queues tagging on the worker, or runs it in place when no
// worker is configured or the queue is unreachable. Errors are logged only.
func (s *Service) ScheduleTagging(ctx context.Context, target string, id uuid.UUID) {
	if s.suggester == nil {
		return
	}
	if s.scheduler != nil {
		err := s.scheduler.EnqueueAutoTag(ctx, target, id)
		if err == nil {
			return
		}
		s.log.SideEffectFailed("enqueue_autotag", err, "target", target, "id", id)
	}
	if err := s.AutoTag(ctx, target, id); err != nil {
		s.log.SideEffectFailed("autotag", err, "target", target, "id", id)
	}
}

// AutoTag dispatches on the tagging target.
func (s *Service) AutoTag(ctx context.Context, target string, id uuid.UUID) error {
	switch target {
	case ports.TargetRequest:
		return s.AutoTagRequest(ctx, id)
	case ports.TargetLicense:
		return s.AutoTagLicense(ctx, id)
	default:
		return fmt.Errorf("unknown tagging target %q", target)
	}
}

// AutoTagRequest links generated tags to a request. A request that already
// carries generated tags is left alone so retries do not duplicate work.
func (s *Service) AutoTagRequest(ctx context.Context, requestID uuid.UUID) error {
	if s.suggester == nil {
		return nil
	}
	subject, err := s.repo.RequestSubject(ctx, requestID)
	if err != nil {
		return err
	}
	if subject.Tagged {
		return nil
	}

	links, err := s.resolve(ctx, subject)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := s.repo.LinkRequestTag(ctx, requestID, l.tagID, l.confidence); err != nil {
			return err
		}
	}
	s.log.Info("request auto-tagged", "requestId", requestID, "tags", len(links))
	return nil
}

// AutoTagLicense links generated tags to a provider license.
func (s *Service) AutoTagLicense(ctx context.Context, licenseID uuid.UUID) error {
	if s.suggester == nil {
		return nil
	}
	subject, err := s.repo.LicenseSubject(ctx, licenseID)
	if err != nil {
		return err
	}
	if subject.Tagged {
		return nil
	}

	links, err := s.resolve(ctx, subject)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := s.repo.LinkLicenseTag(ctx, licenseID, l.tagID, l.confidence); err != nil {
			return err
		}
	}
	s.log.Info("license auto-tagged", "licenseId", licenseID, "tags", len(links))
	return nil
}

type tagLink struct {
	tagID      uuid.UUID
	confidence float64
}

func (s *Service) resolve(ctx context.Context, subject repository.TaggingSubject) ([]tagLink, error) {
	names, err := s.repo.ListNames(ctx, vocabularyHint)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(subject.Title + "\n\n" + subject.Description)
	suggestions, err := s.suggester.SuggestTags(ctx, prompt, names)
	if err != nil {
		return nil, err
	}

	links := make([]tagLink, 0, len(suggestions))
	seen := make(map[uuid.UUID]struct{}, len(suggestions))
	for _, sg := range suggestions {
		name := sanitize.CollapseSpaces(sanitize.Text(sg.Profession))
		slug := repository.Slugify(name)
		if slug == "" {
			continue
		}
		tag, err := s.repo.CreateOrGet(ctx, slug, name, sanitize.Text(sg.Description))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tag.ID]; dup {
			continue
		}
		seen[tag.ID] = struct{}{}
		links = append(links, tagLink{tagID: tag.ID, confidence: sg.Confidence})
	}
	return links, nil
}

func toTagResponse(t repository.Tag) transport.TagResponse {
	return transport.TagResponse{
		ID:          t.ID,
		Slug:        t.Slug,
		Name:        t.Name,
		Description: t.Description,
	}
}
