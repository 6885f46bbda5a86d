// Package service is the service-request lifecycle controller: creation,
// update, payment confirmation and cancellation. Every mutation runs in one
// transaction; notifications and tagging happen after commit and never fail
// the operation.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/requests/domain"
	"marketplace_backend/internal/requests/ports"
	"marketplace_backend/internal/requests/repository"
	"marketplace_backend/internal/requests/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/sanitize"
)

type Service struct {
	repo      repository.Repository
	accounts  ports.AccountGuard
	addresses ports.AddressLookup
	tags      ports.TagCatalog
	notifier  ports.Notifier
	storage   ports.ObjectStore
	eventBus  events.Bus
	log       *logger.Logger
	now       clock.Clock
}

// Deps groups the collaborators of the service. Storage may be nil.
type Deps struct {
	Accounts  ports.AccountGuard
	Addresses ports.AddressLookup
	Tags      ports.TagCatalog
	Notifier  ports.Notifier
	Storage   ports.ObjectStore
	EventBus  events.Bus
	Log       *logger.Logger
}

func New(repo repository.Repository, deps Deps) *Service {
	return &Service{
		repo:      repo,
		accounts:  deps.Accounts,
		addresses: deps.Addresses,
		tags:      deps.Tags,
		notifier:  deps.Notifier,
		storage:   deps.Storage,
		eventBus:  deps.EventBus,
		log:       deps.Log,
		now:       clock.Now,
	}
}

// Create validates and stores a new request with its attachments and client
// tags, then publishes ServiceRequestCreated so it gets auto-tagged.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req transport.CreateRequestRequest) (transport.RequestResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.RequestResponse{}, err
	}

	requestType := domain.RequestType(req.RequestType)
	if requestType != domain.TypeFast && requestType != domain.TypeLicitacion {
		return transport.RequestResponse{}, apperr.Validation("requestType must be FAST or LICITACION")
	}
	status := domain.StatusPublished
	if req.Status != "" {
		status = domain.Status(req.Status)
		if status != domain.StatusDraft && status != domain.StatusPublished {
			return transport.RequestResponse{}, apperr.Validation("status must be DRAFT or PUBLISHED")
		}
	}

	images, err := s.prepareAttachments(ctx, clientID, req.Attachments)
	if err != nil {
		return transport.RequestResponse{}, err
	}

	now := s.now()
	start, end := clock.NaivePtr(req.PreferredStartAt), clock.NaivePtr(req.PreferredEndAt)
	if err := domain.ValidateWindow(start, end); err != nil {
		return transport.RequestResponse{}, err
	}
	deadline, err := domain.ResolveBiddingDeadline(now, requestType, clock.NaivePtr(req.BiddingDeadline))
	if err != nil {
		return transport.RequestResponse{}, err
	}

	tagIDs := uniqueIDs(req.TagIDs)
	if len(tagIDs) > 0 {
		missing, err := s.tags.MissingTags(ctx, tagIDs)
		if err != nil {
			return transport.RequestResponse{}, err
		}
		if len(missing) > 0 {
			return transport.RequestResponse{}, apperr.Validation("unknown tags").
				WithDetails(map[string][]uuid.UUID{"missingTagIds": missing})
		}
	}

	description := sanitize.Text(req.Description)
	if description == "" {
		return transport.RequestResponse{}, apperr.Validation("description is required")
	}

	sr := domain.ServiceRequest{
		ID:               uuid.New(),
		ClientID:         clientID,
		Title:            domain.ResolveTitle(sanitize.TextPtr(req.Title), description, requestType),
		Description:      description,
		Type:             requestType,
		Status:           status,
		PreferredStartAt: start,
		PreferredEndAt:   end,
		BiddingDeadline:  deadline,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var address *ports.Address
	if req.AddressID != nil {
		a, err := s.addresses.GetActiveAddress(ctx, clientID, *req.AddressID)
		if err != nil {
			return transport.RequestResponse{}, err
		}
		address = &a
		sr.AddressID = &a.ID
		city := a.City
		sr.City = &city
		sr.Latitude = a.Latitude
		sr.Longitude = a.Longitude
	}

	for i := range images {
		images[i].RequestID = sr.ID
	}

	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		if err := tx.Create(ctx, sr); err != nil {
			return err
		}
		if err := tx.AddImages(ctx, images); err != nil {
			return err
		}
		return tx.LinkTags(ctx, sr.ID, tagIDs, domain.TagSourceClient)
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	s.log.Info("service request created", "requestId", sr.ID, "type", sr.Type, "status", sr.Status)
	s.eventBus.Publish(ctx, events.ServiceRequestCreated{
		BaseEvent:   events.NewBaseEvent(now),
		RequestID:   sr.ID,
		ClientID:    clientID,
		RequestType: string(sr.Type),
	})

	return s.loadAggregate(ctx, sr, address, viewAsOwner)
}

// prepareAttachments checks count, uniqueness and ownership of the storage
// keys, and that the objects were uploaded when storage is configured.
func (s *Service) prepareAttachments(ctx context.Context, clientID uuid.UUID, in []transport.AttachmentInput) ([]domain.Image, error) {
	keys := make([]string, 0, len(in))
	for _, a := range in {
		keys = append(keys, strings.TrimSpace(a.StorageKey))
	}
	if err := domain.ValidateAttachments(keys); err != nil {
		return nil, err
	}

	prefix := uploadPrefix(clientID)
	images := make([]domain.Image, 0, len(in))
	for i, a := range in {
		key := keys[i]
		if !strings.HasPrefix(key, prefix) {
			return nil, apperr.Validation("attachment was not uploaded by this client").
				WithDetails(map[string]string{"storageKey": key})
		}
		if s.storage != nil {
			ok, err := s.storage.Exists(ctx, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, apperr.Validation("attachment not found in storage").
					WithDetails(map[string]string{"storageKey": key})
			}
		}
		images = append(images, domain.Image{
			ID:          uuid.New(),
			StorageKey:  key,
			ContentType: a.ContentType,
			Position:    i,
		})
	}
	return images, nil
}

// Update changes status and/or type. Cancelling goes through CancelRequest.
func (s *Service) Update(ctx context.Context, clientID, requestID uuid.UUID, req transport.UpdateRequestRequest) (transport.RequestResponse, error) {
	if req.Status == nil && req.RequestType == nil {
		return transport.RequestResponse{}, apperr.Validation("status or requestType is required")
	}
	if req.Status != nil && domain.Status(*req.Status) == domain.StatusCancelled {
		if req.RequestType != nil {
			return transport.RequestResponse{}, apperr.Validation("requestType cannot change while cancelling")
		}
		return s.CancelRequest(ctx, clientID, requestID)
	}
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.RequestResponse{}, err
	}

	var sr domain.ServiceRequest
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if current.ClientID != clientID {
			return apperr.Forbidden("request belongs to another client")
		}

		next, changed, err := s.applyUpdate(ctx, tx, current, req)
		if err != nil {
			return err
		}
		sr = next
		if !changed {
			return nil
		}
		if err := tx.UpdateStatus(ctx, repository.StatusUpdate{
			ID:              next.ID,
			Status:          next.Status,
			Type:            next.Type,
			BiddingDeadline: next.BiddingDeadline,
			ExpectedVersion: current.Version,
			At:              next.UpdatedAt,
		}); err != nil {
			return err
		}
		sr.Version = current.Version + 1
		return nil
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}
	return s.loadAggregate(ctx, sr, nil, viewAsOwner)
}

func (s *Service) applyUpdate(ctx context.Context, tx repository.Repository, current domain.ServiceRequest, req transport.UpdateRequestRequest) (domain.ServiceRequest, bool, error) {
	next := current
	now := s.now()

	if req.Status != nil {
		to := domain.Status(*req.Status)
		if err := domain.CheckStatusChange(current.Status, to); err != nil {
			return current, false, err
		}
		if current.Status == domain.StatusPublished && to == domain.StatusDraft {
			n, err := tx.CountProposals(ctx, current.ID)
			if err != nil {
				return current, false, err
			}
			if n > 0 {
				return current, false, apperr.Conflict("a request with proposals cannot go back to draft")
			}
		}
		next.Status = to
	}

	if req.RequestType != nil {
		to := domain.RequestType(*req.RequestType)
		if err := domain.CheckTypeChange(current.Type, to); err != nil {
			return current, false, err
		}
		if to != current.Type {
			if current.Status != domain.StatusDraft && current.Status != domain.StatusPublished {
				return current, false, apperr.Conflict("request type can only change before confirmation")
			}
			next.Type = to
			if to == domain.TypeLicitacion {
				d := domain.DefaultBiddingDeadline(now)
				next.BiddingDeadline = &d
			} else {
				next.BiddingDeadline = nil
			}
		}
	}

	changed := next.Status != current.Status || next.Type != current.Type
	if changed {
		next.UpdatedAt = now
	}
	return next, changed, nil
}

// CancelRequest cancels a request that has no service yet. Cancelling an
// already cancelled request is a no-op.
func (s *Service) CancelRequest(ctx context.Context, clientID, requestID uuid.UUID) (transport.RequestResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.RequestResponse{}, err
	}

	var (
		sr       domain.ServiceRequest
		rejected []uuid.UUID
	)
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if current.ClientID != clientID {
			return apperr.Forbidden("request belongs to another client")
		}
		sr = current

		svc, err := tx.GetService(ctx, requestID)
		if err != nil {
			return err
		}
		if svc != nil {
			return apperr.Conflict("request already has a service, cancel the service instead").
				WithDetails(map[string]string{"serviceId": svc.ID.String()})
		}
		if current.Status == domain.StatusCancelled {
			return nil
		}

		now := s.now()
		rejected, err = tx.RejectOpenProposals(ctx, requestID, now)
		if err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, repository.StatusUpdate{
			ID:              current.ID,
			Status:          domain.StatusCancelled,
			Type:            current.Type,
			BiddingDeadline: current.BiddingDeadline,
			ExpectedVersion: current.Version,
			At:              now,
		}); err != nil {
			return err
		}
		sr.Status = domain.StatusCancelled
		sr.Version = current.Version + 1
		sr.UpdatedAt = now
		return nil
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	for _, providerUserID := range rejected {
		s.notify(ctx, providerUserID, "Solicitud cancelada", "El cliente canceló la solicitud \""+sr.Title+"\"", map[string]string{
			"requestId": sr.ID.String(),
		})
	}
	return s.loadAggregate(ctx, sr, nil, viewAsOwner)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body, data); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("notify", err, "userId", userID, "title", title)
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
