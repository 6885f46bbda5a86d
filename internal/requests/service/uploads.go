package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketplace_backend/internal/requests/transport"
	"marketplace_backend/platform/apperr"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

func uploadPrefix(clientID uuid.UUID) string {
	return fmt.Sprintf("requests/%s/", clientID)
}

// PresignUpload reserves a storage key under the client's prefix and returns
// a URL the client uploads the image to directly.
func (s *Service) PresignUpload(ctx context.Context, clientID uuid.UUID, req transport.PresignUploadRequest) (transport.PresignUploadResponse, error) {
	if s.storage == nil {
		return transport.PresignUploadResponse{}, apperr.BadRequest("image uploads are not enabled")
	}
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.PresignUploadResponse{}, err
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return transport.PresignUploadResponse{}, apperr.Validation("only jpeg, png, webp or heic images are accepted").
			WithDetails(map[string]string{"contentType": req.ContentType})
	}

	key := uploadPrefix(clientID) + uuid.NewString() + ext
	url, expiresAt, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		return transport.PresignUploadResponse{}, err
	}
	return transport.PresignUploadResponse{UploadURL: url, StorageKey: key, ExpiresAt: expiresAt}, nil
}
