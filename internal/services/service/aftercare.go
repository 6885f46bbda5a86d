package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/services/domain"
	"marketplace_backend/internal/services/ports"
	"marketplace_backend/internal/services/repository"
	"marketplace_backend/internal/services/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/sanitize"
)

// SubmitReview rates the provider of a completed service and folds the
// rating into the provider's running average.
func (s *Service) SubmitReview(ctx context.Context, clientID, serviceID uuid.UUID, req transport.SubmitReviewRequest) (transport.ReviewResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.ReviewResponse{}, err
	}

	var (
		review domain.Review
		rating repository.ProviderRating
		svc    domain.Service
	)
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetForUpdate(ctx, serviceID)
		if err != nil {
			return err
		}
		if current.ClientID != clientID {
			return apperr.Forbidden("only the client of this service may review it")
		}
		if current.Status != domain.StatusCompleted {
			return apperr.Conflict("only completed services can be reviewed").
				WithDetails(map[string]string{"status": string(current.Status)})
		}
		if current.ProviderID == nil {
			return apperr.Conflict("service has no provider to review")
		}
		reviewed, err := tx.HasReview(ctx, serviceID, clientID)
		if err != nil {
			return err
		}
		if reviewed {
			return apperr.Conflict("service already reviewed")
		}

		prev, err := tx.LockProviderRating(ctx, *current.ProviderID)
		if err != nil {
			return err
		}
		avg, count, err := domain.NextRating(prev.Average, prev.Count, req.Rating)
		if err != nil {
			return err
		}

		review = domain.Review{
			ID:         uuid.New(),
			ServiceID:  serviceID,
			RaterID:    clientID,
			ProviderID: *current.ProviderID,
			Rating:     req.Rating,
			Comment:    sanitize.Text(req.Comment),
			CreatedAt:  s.now(),
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}
		rating = repository.ProviderRating{Average: avg, Count: count}
		svc = current
		return tx.UpdateProviderRating(ctx, *current.ProviderID, rating)
	})
	if err != nil {
		return transport.ReviewResponse{}, err
	}

	s.log.Info("service reviewed", "serviceId", serviceID, "providerId", review.ProviderID, "rating", review.Rating)
	if svc.ProviderUserID != nil {
		s.notify(ctx, *svc.ProviderUserID, "Nueva reseña", "Recibiste una calificación de "+strconv.Itoa(review.Rating)+" estrellas", svc)
	}
	return transport.ReviewResponse{
		ID:                   review.ID,
		ServiceID:            review.ServiceID,
		Rating:               review.Rating,
		Comment:              review.Comment,
		CreatedAt:            review.CreatedAt,
		ProviderRatingAvg:    rating.Average.String(),
		ProviderTotalReviews: rating.Count,
	}, nil
}

// Rehire opens a RECONTRATACION request for the provider of a completed
// service and tells the provider about it.
func (s *Service) Rehire(ctx context.Context, clientID, serviceID uuid.UUID, req transport.RehireRequest) (transport.RehireResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.RehireResponse{}, err
	}
	svc, err := s.repo.GetByID(ctx, serviceID)
	if err != nil {
		return transport.RehireResponse{}, err
	}
	if svc.ClientID != clientID {
		return transport.RehireResponse{}, apperr.Forbidden("only the client of this service may rehire")
	}
	if svc.Status != domain.StatusCompleted {
		return transport.RehireResponse{}, apperr.Conflict("only completed services can be rehired").
			WithDetails(map[string]string{"status": string(svc.Status)})
	}
	if svc.ProviderID == nil {
		return transport.RehireResponse{}, apperr.Conflict("the provider of this service is no longer available")
	}
	if s.rehirer == nil {
		return transport.RehireResponse{}, apperr.Internal("rehire is not configured")
	}

	in := ports.RehireRequest{
		ClientID:         clientID,
		OriginServiceID:  svc.ID,
		OriginRequestID:  svc.RequestID,
		TargetProviderID: *svc.ProviderID,
		Description:      req.Description,
	}
	if a := svc.AddressSnapshot; a != nil {
		in.AddressID = a.AddressID
		in.City = a.City
		in.Latitude = a.Latitude
		in.Longitude = a.Longitude
	}
	created, err := s.rehirer.CreateRehire(ctx, in)
	if err != nil {
		return transport.RehireResponse{}, err
	}

	if svc.ProviderUserID != nil {
		s.send(ctx, *svc.ProviderUserID, "Te volvieron a contratar",
			"Un cliente quiere contratarte de nuevo: \""+created.Title+"\"", map[string]string{
				"requestId":       created.RequestID.String(),
				"originServiceId": svc.ID.String(),
			})
	}
	return transport.RehireResponse{
		RequestID:        created.RequestID,
		Title:            created.Title,
		OriginServiceID:  svc.ID,
		TargetProviderID: *svc.ProviderID,
	}, nil
}

// ClaimWarranty reopens a completed service inside its warranty window. The
// same service row goes back to CONFIRMED; the deadline itself is inclusive.
func (s *Service) ClaimWarranty(ctx context.Context, clientID, serviceID uuid.UUID, req transport.WarrantyClaimRequest) (transport.ServiceResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.ServiceResponse{}, err
	}
	description := sanitize.Text(req.Description)
	if description == "" {
		return transport.ServiceResponse{}, apperr.Validation("description is required")
	}

	svc, _, err := s.transition(ctx, clientID, serviceID, step{
		action: domain.ActionWarrantyReopen,
		who:    actorClient,
		guard: func(svc domain.Service, now time.Time) error {
			if svc.ProviderID == nil {
				return apperr.Conflict("service has no provider to claim against")
			}
			if svc.RequestID == uuid.Nil {
				return apperr.Conflict("service has no request")
			}
			deadline, ok := svc.WarrantyDeadline()
			if !ok {
				return apperr.Conflict("service has no completion date")
			}
			if now.After(deadline) {
				return apperr.Conflict("warranty period has ended").
					WithDetails(map[string]time.Time{"warrantyExpiresAt": deadline})
			}
			return nil
		},
		fill: func(t *repository.Transition, _ domain.Service) {
			t.WarrantyClaimDescription = &description
		},
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	if svc.ProviderUserID != nil {
		s.notify(ctx, *svc.ProviderUserID, "Reclamo de garantía", description, svc)
	}
	return toResponse(svc), nil
}
