package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"gobarber/client/internal/domain"
)

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (domain.User, error) {
	var out domain.User
	if err := c.doJSON(ctx, "create_user", http.MethodPost, "/users", nil, req, &out); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// UpdateProfileRequest changes the signed-in user's profile. The password
// fields are sent only when Password is set.
type UpdateProfileRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	OldPassword          string `json:"old_password,omitempty"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
}

// UpdateProfile returns the fields of the user record the server sent back.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (domain.UserPatch, error) {
	var out domain.UserPatch
	if err := c.doJSON(ctx, "update_profile", http.MethodPut, "/profile", nil, req, &out); err != nil {
		return domain.UserPatch{}, err
	}
	return out, nil
}

// UpdateAvatar uploads an image as the multipart field "avatar".
func (c *Client) UpdateAvatar(ctx context.Context, filename string, content io.Reader) (domain.UserPatch, error) {
	const op = "update_avatar"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filepath.Base(filename))
	if err != nil {
		return domain.UserPatch{}, fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return domain.UserPatch{}, fmt.Errorf("%s: read avatar: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return domain.UserPatch{}, fmt.Errorf("%s: build form: %w", op, err)
	}

	var out domain.UserPatch
	if err := c.do(ctx, op, http.MethodPatch, "/users/avatar", nil, mw.FormDataContentType(), buf.Bytes(), &out); err != nil {
		return domain.UserPatch{}, err
	}
	return out, nil
}
