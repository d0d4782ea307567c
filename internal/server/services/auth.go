// Package services contains the server-side business logic. AuthService is
// the account state machine: email verification, registration, login,
// password reset and session resolution.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/dbx"
	"github.com/dmitrijs2005/uptcauth/internal/logging"
	"github.com/dmitrijs2005/uptcauth/internal/notify"
	"github.com/dmitrijs2005/uptcauth/internal/server/config"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
	"github.com/dmitrijs2005/uptcauth/internal/server/policy"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/uptcauth/internal/server/tokens"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
	NeedsRehash(digest string) bool
}

type TokenCodec interface {
	IssueRegistration(email string) (string, tokens.RegistrationClaims, error)
	IssueSession(email string, role models.Role) (string, tokens.SessionClaims, error)
	ParseRegistration(token string) (tokens.RegistrationClaims, error)
	ParseSession(token string) (tokens.SessionClaims, error)
}

type CodeGenerator interface {
	Generate(length int) (string, error)
}

// Mailer queues a message for background delivery and never blocks.
type Mailer interface {
	Dispatch(ctx context.Context, m notify.Message) bool
}

// Dependencies are the collaborators AuthService does not build itself.
// A nil Ledger means the Postgres ledger from the repository manager.
type Dependencies struct {
	Ledger verifications.Ledger
	Hasher PasswordHasher
	Tokens TokenCodec
	Codes  CodeGenerator
	Mailer Mailer
	Logger logging.Logger
}

// RegistrationInput is what a client submits together with the
// registration token obtained from VerifyCode.
type RegistrationInput struct {
	Token    string
	Email    string
	Password string
	Profile  models.Profile
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      verifications.Ledger
	hasher      PasswordHasher
	tokens      TokenCodec
	codes       CodeGenerator
	mailer      Mailer
	policy      *policy.Policy
	log         logging.Logger
	now         func() time.Time

	codeLength          int
	verificationCodeTTL time.Duration
	resetCodeTTL        time.Duration

	// compared against on unknown-email logins so they cost one hash
	dummyDigest string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, deps Dependencies, cfg *config.Config) (*AuthService, error) {
	ledger := deps.Ledger
	if ledger == nil {
		ledger = m.Verifications(db)
	}
	log := deps.Logger
	if log == nil {
		log = logging.Nop{}
	}

	dummy, err := deps.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("preparing dummy digest: %w", err)
	}

	return &AuthService{
		db:                  db,
		repomanager:         m,
		ledger:              ledger,
		hasher:              deps.Hasher,
		tokens:              deps.Tokens,
		codes:               deps.Codes,
		mailer:              deps.Mailer,
		policy:              policy.New(cfg.AllowedEmailDomain),
		log:                 log.With("module", "auth"),
		now:                 time.Now,
		codeLength:          cfg.CodeLength,
		verificationCodeTTL: cfg.VerificationCodeTTL,
		resetCodeTTL:        cfg.ResetCodeTTL,
		dummyDigest:         dummy,
	}, nil
}

// RequestVerification emails a fresh code to an institutional address that
// has no account yet. Any earlier code for the address stops working.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	if err := s.policy.CheckEmail(email); err != nil {
		return err
	}

	exists, err := s.repomanager.Users(s.db).Exists(ctx, email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return common.ErrEmailAlreadyRegistered
	}

	code, err := s.codes.Generate(s.codeLength)
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}

	if err := s.ledger.Upsert(ctx, email, code, s.now().Add(s.verificationCodeTTL)); err != nil {
		return fmt.Errorf("storing verification code: %w", err)
	}

	msg, err := notify.VerificationCodeMessage(email, code, s.verificationCodeTTL)
	if err != nil {
		return fmt.Errorf("rendering verification mail: %w", err)
	}
	s.mailer.Dispatch(ctx, msg)

	s.log.Info(ctx, "verification code issued", "email", email)
	return nil
}

// VerifyCode consumes the code and returns a registration token for email.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	if email == "" || code == "" {
		return "", common.ErrCodeInvalidOrExpired
	}

	if err := s.ledger.Consume(ctx, email, code); err != nil {
		if errors.Is(err, common.ErrCodeInvalidOrExpired) {
			return "", common.ErrCodeInvalidOrExpired
		}
		return "", fmt.Errorf("consuming verification code: %w", err)
	}

	token, _, err := s.tokens.IssueRegistration(email)
	if err != nil {
		return "", fmt.Errorf("issuing registration token: %w", err)
	}

	s.log.Info(ctx, "email verified", "email", email)
	return token, nil
}

// Register creates the account once the registration token proves that the
// caller controls in.Email.
func (s *AuthService) Register(ctx context.Context, in RegistrationInput) (models.User, error) {
	claims, err := s.tokens.ParseRegistration(in.Token)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", common.ErrInvalidRegistrationToken, err)
	}
	if claims.Email != in.Email {
		return models.User{}, common.ErrInvalidRegistrationToken
	}

	if err := s.policy.CheckPassword("password", in.Password); err != nil {
		return models.User{}, err
	}
	if err := s.policy.CheckEmailDomain(in.Email); err != nil {
		return models.User{}, err
	}
	if err := checkProfile(in.Profile); err != nil {
		return models.User{}, err
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.Exists(ctx, in.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return models.User{}, common.ErrEmailAlreadyRegistered
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := repo.Create(ctx, models.NewUser(uuid.NewString(), in.Email, digest, in.Profile))
	if err != nil {
		// lost a race with a concurrent registration
		if dbx.IsUniqueViolation(err) {
			return models.User{}, common.ErrEmailAlreadyRegistered
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func checkProfile(p models.Profile) error {
	switch {
	case p.FirstName == "":
		return common.NewValidationError("nombre", "first name is required")
	case p.LastName == "":
		return common.NewValidationError("apellido", "last name is required")
	case p.BirthDate.IsZero():
		return common.NewValidationError("fecha_nacimiento", "birth date is required")
	}
	return nil
}

// Login checks the password and returns a session token. Unknown email,
// wrong password and inactive account are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyDigest)
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("loading user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.HashedPassword)
	if err != nil {
		return "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok || !user.IsActive {
		return "", common.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.HashedPassword) {
		s.rehash(ctx, repo, user, password)
	}

	token, _, err := s.tokens.IssueSession(user.Email, user.Role)
	if err != nil {
		return "", fmt.Errorf("issuing session: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return token, nil
}

// rehash upgrades a legacy digest. Failure only costs another attempt on the
// next login.
func (s *AuthService) rehash(ctx context.Context, repo users.Repository, user models.User, password string) {
	digest, err := s.hasher.Hash(password)
	if err == nil {
		err = repo.Save(ctx, user.WithRehashedPassword(digest))
	}
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	s.log.Info(ctx, "password digest upgraded", "user_id", user.ID)
}

// RequestPasswordReset stores a reset code on the account and mails it. The
// outcome is the same whether or not the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return common.NewValidationError("email", "email is required")
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Debug(ctx, "password reset for unknown email")
			return nil
		}
		return fmt.Errorf("loading user: %w", err)
	}

	code, err := s.codes.Generate(s.codeLength)
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}

	if err := repo.Save(ctx, user.WithResetCode(code, s.now().Add(s.resetCodeTTL))); err != nil {
		return fmt.Errorf("storing reset code: %w", err)
	}

	msg, err := notify.PasswordResetMessage(user.Email, code, s.resetCodeTTL)
	if err != nil {
		return fmt.Errorf("rendering reset mail: %w", err)
	}
	s.mailer.Dispatch(ctx, msg)

	s.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword replaces the password if code is the account's outstanding,
// unexpired reset code. The code is cleared in the same transaction.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.policy.CheckPassword("new_password", newPassword); err != nil {
		return err
	}

	// hashed up front so every attempt costs the same
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	var userID string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrCodeInvalidOrExpired
			}
			return fmt.Errorf("loading user: %w", err)
		}

		if !user.ResetCodeValid(code, s.now()) {
			return common.ErrCodeInvalidOrExpired
		}

		userID = user.ID
		return repo.Save(ctx, user.WithPassword(digest))
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// CurrentSession resolves a session token to its account.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, common.ErrorUnauthorized
	}

	claims, err := s.tokens.ParseSession(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.User{}, common.ErrorNotFound
		}
		return models.User{}, fmt.Errorf("loading user: %w", err)
	}
	if !user.IsActive {
		return models.User{}, common.ErrorUnauthorized
	}

	return user, nil
}

// Logout is stateless: the transport drops the credential. A still-valid
// token is only recorded in the log.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if claims, err := s.tokens.ParseSession(token); err == nil {
		s.log.Info(ctx, "session ended", "email", claims.Email, "jti", claims.ID)
	}
}

// SweepVerifications drops expired ledger entries.
func (s *AuthService) SweepVerifications(ctx context.Context) (int64, error) {
	n, err := s.ledger.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweeping verifications: %w", err)
	}
	if n > 0 {
		s.log.Debug(ctx, "expired verifications removed", "count", n)
	}
	return n, nil
}
