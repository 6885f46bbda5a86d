package transport

import "github.com/google/uuid"

type ProviderProfileResponse struct {
	ID           uuid.UUID `json:"id"`
	DisplayName  string    `json:"displayName"`
	RatingAvg    float64   `json:"ratingAvg"`
	TotalReviews int       `json:"totalReviews"`
}

type MeResponse struct {
	ID       uuid.UUID                `json:"id"`
	Email    string                   `json:"email"`
	FullName string                   `json:"fullName"`
	Role     string                   `json:"role"`
	IsActive bool                     `json:"isActive"`
	Provider *ProviderProfileResponse `json:"provider,omitempty"`
}
