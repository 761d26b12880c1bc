package user

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/microshop/internal/event"
	"github.com/xenking/microshop/internal/identity"
)

// Tokens abstracts the token issuer the account service needs: access tokens
// on login and single-purpose tokens for verification links.
type Tokens interface {
	Access(id identity.Identity) (string, error)
	EmailVerification(userID int64, email string) (string, error)
	VerifyEmailVerification(raw string) (int64, string, error)
}

// Service implements account registration, email verification and login.
type Service struct {
	users       Repository
	tokens      Tokens
	bus         event.Publisher
	frontendURL string
}

// NewService creates an account Service. frontendURL is the base of the web
// frontend that receives verification links.
func NewService(users Repository, tokens Tokens, bus event.Publisher, frontendURL string) *Service {
	return &Service{
		users:       users,
		tokens:      tokens,
		bus:         bus,
		frontendURL: frontendURL,
	}
}

// Register creates an unverified account and publishes user.registered so the
// notification consumer mails the verification link. The publish is best
// effort: a broker failure is logged and registration still succeeds, at the
// cost of the user needing a resend.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "check email")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	u := &User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return errors.Wrap(err, "create user")
	}

	verifyToken, err := s.tokens.EmailVerification(u.ID, u.Email)
	if err != nil {
		return errors.Wrap(err, "issue verify token")
	}

	env, err := event.NewUserRegistered(event.UserRegistered{
		Email:     u.Email,
		VerifyURL: s.frontendURL + "/verify?token=" + verifyToken,
	})
	if err == nil {
		err = s.bus.Publish(ctx, env)
	}
	if err != nil {
		zctx.From(ctx).Error("Registration event not published",
			zap.Int64("user_id", u.ID),
			zap.Error(err),
		)
	}

	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	userID, email, err := s.tokens.VerifyEmailVerification(rawToken)
	if err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Email != email {
		return ErrNotFound
	}

	return s.users.MarkVerified(ctx, u.ID)
}

// Login checks credentials and returns a bearer access token plus the
// account. Lookup and password failures collapse into ErrBadCredential so the
// response does not leak which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrBadCredential
		}
		return "", nil, errors.Wrap(err, "get user")
	}
	if !CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrBadCredential
	}

	access, err := s.tokens.Access(identity.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Admin:  u.Admin,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "issue access token")
	}
	return access, u, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// SeedAdmin ensures the configured admin account exists. Empty credentials
// skip seeding.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "check admin")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := &User{
		Email:        email,
		PasswordHash: hash,
		Admin:        true,
		Verified:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return errors.Wrap(err, "create admin")
	}
	zctx.From(ctx).Info("Admin account seeded", zap.String("email", email))
	return nil
}
