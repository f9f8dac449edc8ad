// Package auth implements signup with admin approval, login, and JWT access
// tokens. New accounts start inactive and cannot log in until an admin
// activates them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/notify"
	"github.com/ADI-2707/BillSwift/internal/obs"
	"github.com/ADI-2707/BillSwift/internal/store"
)

const defaultAccessTTL = 24 * time.Hour

// UserStore is the persistence surface the auth service needs.
type UserStore interface {
	Create(ctx context.Context, in store.NewUser) (store.User, error)
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, id int64) (store.User, error)
}

// Service coordinates account creation, credential checks and token issuance.
type Service struct {
	users     UserStore
	mailer    *notify.Mailer
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
}

// Config configures the auth service.
type Config struct {
	Users          UserStore
	Mailer         *notify.Mailer
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// SignupInput carries the signup form fields.
type SignupInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	EmployeeCode string `json:"employee_code"`
	Team         string `json:"team"`
	Password     string `json:"password"`
}

// LoginResult bundles the token material returned after a successful login.
type LoginResult struct {
	User         store.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	AccessExpiry time.Time  `json:"access_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Users == nil {
		return nil, errors.New("auth: user store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "billswift"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "billswift-frontend"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		users:     cfg.Users,
		mailer:    cfg.Mailer,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Signup creates an inactive account awaiting admin approval. Notification
// emails are best effort and never fail the signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (store.User, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return store.User{}, common.ValidationError("first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return store.User{}, common.ValidationError("last_name is required")
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, common.ValidationError("a valid email is required")
	}
	code := strings.ToUpper(strings.TrimSpace(in.EmployeeCode))
	if code == "" {
		return store.User{}, common.ValidationError("employee_code is required")
	}
	if len(in.Password) < 8 {
		return store.User{}, common.ValidationError("password must be at least 8 characters")
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, store.NewUser{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		EmployeeCode: code,
		Team:         strings.TrimSpace(in.Team),
		PasswordHash: hash,
		Role:         "user",
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, common.ConflictError("email or employee code is already registered")
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	if obs.SignupsPendingTotal != nil {
		obs.SignupsPendingTotal.Inc()
	}
	if s.mailer != nil {
		s.mailer.SignupReceived(created)
		s.mailer.SignupPendingAdmin(created)
	}
	return created, nil
}

// Login verifies credentials and issues an access token. Accounts still
// pending approval are rejected with 403 so the client can show a distinct
// message.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" || password == "" {
		return LoginResult{}, common.UnauthorizedError("invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, common.UnauthorizedError("invalid email or password")
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	ok, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, common.UnauthorizedError("invalid email or password")
	}
	if !user.IsActive {
		return LoginResult{}, common.ForbiddenError("account is waiting for admin approval")
	}

	token, expiry, err := s.signAccessToken(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{User: user, AccessToken: token, AccessExpiry: expiry}, nil
}

// Me fetches the authenticated account.
func (s *Service) Me(ctx context.Context, userID int64) (store.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, common.UnauthorizedError("unauthorized")
		}
		return store.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ParseAccessToken validates an access token and reconstructs the session
// carried in its claims.
func (s *Service) ParseAccessToken(token string) (common.Session, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Session{}, common.UnauthorizedError("missing token")
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Session{}, common.NewAppError("UNAUTHORIZED", "invalid token", 401, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return common.Session{}, common.NewAppError("UNAUTHORIZED", "invalid token", 401, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return common.Session{}, common.NewAppError("UNAUTHORIZED", "invalid token", 401, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return common.Session{}, common.NewAppError("UNAUTHORIZED", "invalid token", 401, err)
	}

	userID, err := strconv.ParseInt(parsed.Subject(), 10, 64)
	if err != nil || userID <= 0 {
		return common.Session{}, common.UnauthorizedError("invalid token")
	}
	session := common.Session{UserID: userID}
	if v, ok := parsed.Get("role"); ok {
		session.Role, _ = v.(string)
	}
	if v, ok := parsed.Get("email"); ok {
		session.Email, _ = v.(string)
	}
	if v, ok := parsed.Get("employee_code"); ok {
		session.EmployeeCode, _ = v.(string)
	}
	return session, nil
}

func (s *Service) signAccessToken(user store.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(strconv.FormatInt(user.ID, 10)).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim("role", user.Role).
		Claim("email", user.Email).
		Claim("employee_code", user.EmployeeCode)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
