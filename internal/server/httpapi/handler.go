// Package httpapi is the public HTTP surface of the auth service.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/logging"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
	"github.com/dmitrijs2005/uptcauth/internal/server/services"
)

const (
	msgWelcome            = "Welcome to the authentication service"
	msgVerificationSent   = "If the address can be registered, a verification code has been sent."
	msgResetRequested     = "If your email is registered, you will receive a code to reset your password."
	msgPasswordReset      = "Password updated successfully."
	msgLoggedOut          = "Logged out."
	registrationTokenType = "registration"
)

type AuthService interface {
	RequestVerification(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (string, error)
	Register(ctx context.Context, in services.RegistrationInput) (models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	CurrentSession(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string)
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

type Handler struct {
	auth   AuthService
	cookie CookieOptions
	log    logging.Logger
}

func NewHandler(auth AuthService, cookie CookieOptions, log logging.Logger) *Handler {
	return &Handler{auth: auth, cookie: cookie, log: log.With("module", "http")}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    common.BearerPrefix + token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken returns the JWT from the session cookie, or "" if the
// cookie is missing or not a bearer credential.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(common.AccessTokenCookieName)
	if err != nil {
		return ""
	}
	token, ok := strings.CutPrefix(c.Value, common.BearerPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msgWelcome})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestVerification(w http.ResponseWriter, r *http.Request) error {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := fieldErrors(req.Validate()); err != nil {
		return err
	}

	if err := h.auth.RequestVerification(r.Context(), req.Email); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgVerificationSent})
	return nil
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) error {
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := fieldErrors(req.Validate()); err != nil {
		return err
	}

	token, err := h.auth.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, registrationTokenResponse{RegistrationToken: token, TokenType: registrationTokenType})
	return nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := fieldErrors(req.Validate()); err != nil {
		return err
	}

	in, err := req.toInput()
	if err != nil {
		return err
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	req, err := readLogin(w, r)
	if err != nil {
		return err
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.TokenTypeBearer})
	return nil
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) error {
	user, err := h.auth.CurrentSession(r.Context(), sessionToken(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
	return nil
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	h.auth.Logout(r.Context(), sessionToken(r))
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLoggedOut})
	return nil
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := fieldErrors(req.Validate()); err != nil {
		return err
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgResetRequested})
	return nil
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) error {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := fieldErrors(req.Validate()); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgPasswordReset})
	return nil
}
