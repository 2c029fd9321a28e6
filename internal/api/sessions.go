package api

import (
	"context"
	"net/http"

	"gobarber/client/internal/domain"
)

// CreateSession exchanges credentials for an access token and the user
// record. The result is returned as decoded; callers decide whether it is
// complete.
func (c *Client) CreateSession(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	var out domain.Session
	if err := c.doJSON(ctx, "create_session", http.MethodPost, "/sessions", nil, creds, &out); err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword asks the server to email a password reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, "forgot_password", http.MethodPost, "/password/forgot", nil, forgotPasswordRequest{Email: email}, nil)
}

type ResetPasswordRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.doJSON(ctx, "reset_password", http.MethodPost, "/password/reset", nil, req, nil)
}
