package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
	"github.com/dmitrijs2005/uptcauth/internal/server/services"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
	maxTextLen   = 100
)

var strict = bluemonday.StrictPolicy()

// cleanText strips markup from free-text profile fields. bluemonday escapes
// entities, which are turned back into plain characters here.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	c := cleanText(*s)
	if c == "" {
		return nil
	}
	return &c
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest(msgInvalidBody, err)
		}
		return badRequest(msgInvalidBody, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// fieldErrors converts ozzo's per-field errors into a ValidationError.
func fieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for k, v := range errs {
		fields[k] = v.Error()
	}
	return &common.ValidationError{Fields: fields}
}

type emailRequest struct {
	Email string `json:"email"`
}

func (r emailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r verifyCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, is.Digit),
	)
}

type registrationTokenResponse struct {
	RegistrationToken string `json:"registration_token"`
	TokenType         string `json:"token_type"`
}

type registerRequest struct {
	RegistrationToken string  `json:"registration_token"`
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	FirstName         string  `json:"nombre"`
	LastName          string  `json:"apellido"`
	BirthDate         string  `json:"fecha_nacimiento"`
	Program           *string `json:"carrera"`
	Group             *string `json:"grupo"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RegistrationToken, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(1, maxTextLen)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(1, maxTextLen)),
		validation.Field(&r.BirthDate, validation.Required, validation.Date(dateLayout)),
		validation.Field(&r.Program, validation.RuneLength(0, maxTextLen)),
		validation.Field(&r.Group, validation.RuneLength(0, maxTextLen)),
	)
}

func (r registerRequest) toInput() (services.RegistrationInput, error) {
	birth, err := time.Parse(dateLayout, r.BirthDate)
	if err != nil {
		return services.RegistrationInput{}, common.NewValidationError("fecha_nacimiento", "must be a date in YYYY-MM-DD format")
	}

	profile := models.Profile{
		FirstName: cleanText(r.FirstName),
		LastName:  cleanText(r.LastName),
		BirthDate: birth,
		Program:   cleanOptional(r.Program),
		Group:     cleanOptional(r.Group),
	}

	return services.RegistrationInput{
		Token:    r.RegistrationToken,
		Email:    r.Email,
		Password: r.Password,
		Profile:  profile,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// readLogin accepts JSON or the OAuth2 password form (username, password).
func readLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, badRequest(msgInvalidBody, err)
		}
		req.Email = r.PostFormValue("username")
		if req.Email == "" {
			req.Email = r.PostFormValue("email")
		}
		req.Password = r.PostFormValue("password")
	default:
		if err := decodeJSON(w, r, &req); err != nil {
			return req, err
		}
	}

	return req, fieldErrors(req.Validate())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (r resetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"nombre"`
	LastName  string  `json:"apellido"`
	BirthDate string  `json:"fecha_nacimiento"`
	Program   *string `json:"carrera"`
	Group     *string `json:"grupo"`
	IsActive  bool    `json:"is_active"`
	Role      string  `json:"rol"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.Profile.FirstName,
		LastName:  u.Profile.LastName,
		BirthDate: u.Profile.BirthDate.Format(dateLayout),
		Program:   u.Profile.Program,
		Group:     u.Profile.Group,
		IsActive:  u.IsActive,
		Role:      string(u.Role),
	}
}
