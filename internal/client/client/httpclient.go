package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/common"
)

// HTTPClient talks to the auth server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType, session string, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: common.BearerPrefix + session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		if json.Unmarshal(data, &er) != nil || er.Detail == "" {
			er.Detail = http.StatusText(resp.StatusCode)
		}
		return resp, &APIError{Status: resp.StatusCode, Detail: er.Detail, Fields: er.Errors}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", "", out)
	return err
}

func (c *HTTPClient) RequestVerification(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/auth/request-verification", map[string]string{"email": email}, &out)
	return out.Message, err
}

func (c *HTTPClient) VerifyCode(ctx context.Context, email, code string) (string, error) {
	var out struct {
		RegistrationToken string `json:"registration_token"`
	}
	err := c.postJSON(ctx, "/auth/verify-code", map[string]string{"email": email, "code": code}, &out)
	return out.RegistrationToken, err
}

func (c *HTTPClient) Register(ctx context.Context, token, email, password string, p Profile) (*User, error) {
	in := struct {
		Profile
		RegistrationToken string `json:"registration_token"`
		Email             string `json:"email"`
		Password          string `json:"password"`
	}{p, token, email, password}

	var out User
	if err := c.postJSON(ctx, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login posts the OAuth2 password form and returns the session token. The
// token is read from the session cookie, falling back to the body.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{"username": {email}, "password": {password}}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := c.do(ctx, http.MethodPost, "/auth/token", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", "", &out)
	if err != nil {
		return "", err
	}

	for _, ck := range resp.Cookies() {
		if ck.Name != common.AccessTokenCookieName {
			continue
		}
		if token, ok := strings.CutPrefix(ck.Value, common.BearerPrefix); ok && token != "" {
			return token, nil
		}
	}
	if out.AccessToken == "" {
		return "", errors.New("server returned no session token")
	}
	return out.AccessToken, nil
}

func (c *HTTPClient) Profile(ctx context.Context, session string) (*User, error) {
	if session == "" {
		return nil, ErrNotLoggedIn
	}
	var out User
	if _, err := c.do(ctx, http.MethodGet, "/auth/profile", nil, "", session, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, session string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, "", session, nil)
	return err
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/auth/forgot-password", map[string]string{"email": email}, &out)
	return out.Message, err
}

func (c *HTTPClient) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/auth/reset-password", map[string]string{
		"email":        email,
		"code":         code,
		"new_password": newPassword,
	}, &out)
	return out.Message, err
}
