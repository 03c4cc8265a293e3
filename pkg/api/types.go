package api

import (
	"time"

	"github.com/vango-dev/linkportal/pkg/auth"
)

// ShortURL is a shortened link owned by the signed-in user.
type ShortURL struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ShortURL  string    `json:"short_url"`
	TargetURL string    `json:"target_url"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	User         *auth.User `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type listResponse struct {
	URLs []ShortURL `json:"urls"`
}
