// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/safevault/safevault/internal/sanitize"
	"github.com/safevault/safevault/pkg/errutil"
)

var tracer = otel.Tracer("safevault/auth")

// Errors returned by NewAuthService for missing collaborators.
var (
	ErrNilUserRepository = errors.New("auth: user repository is required")
	ErrNilTokenStore     = errors.New("auth: token store is required")
	ErrNilPasswordHasher = errors.New("auth: password hasher is required")
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Session is the result of a successful Login.
type Session struct {
	Token string
	User  *UserRecord
}

// Service provides authentication operations.
type Service struct {
	users     UserRepository
	tokens    TokenStore
	hasher    PasswordHasher
	logger    *slog.Logger
	dummyHash string
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithLogger sets the logger used for absorbed storage failures.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAuthService creates a new Service. Returns an error if any collaborator is nil.
func NewAuthService(users UserRepository, tokens TokenStore, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, ErrNilUserRepository
	}
	if tokens == nil {
		return nil, ErrNilTokenStore
	}
	if hasher == nil {
		return nil, ErrNilPasswordHasher
	}

	s := &Service{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		logger:    slog.Default(),
		dummyHash: dummyPasswordHash,
	}
	// Hashers that know their own cost produce a dummy with matching timing.
	if d, ok := hasher.(interface{ DummyHash() string }); ok {
		s.dummyHash = d.DummyHash()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates and stores a new credential record.
// An empty role defaults to RoleUser. Duplicate and storage errors are
// returned unchanged so their codes reach the caller.
func (s *Service) Register(ctx context.Context, username, email, password, role string) (record *UserRecord, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { s.finish(span, OperationRegister, start, registerResult(err), err) }()

	cleanUsername := sanitize.Username(username)
	if cleanUsername == "" {
		return nil, InvalidInput("username")
	}
	cleanEmail := sanitize.Email(email)
	if cleanEmail == "" {
		return nil, InvalidInput("email")
	}
	if strings.TrimSpace(password) == "" {
		return nil, InvalidInput("password")
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = RoleUser
	}
	span.SetAttributes(
		attribute.String("user.name", cleanUsername),
		attribute.String("user.role", role),
	)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	id, err := s.users.Insert(ctx, cleanUsername, cleanEmail, hash, role)
	if err != nil {
		return nil, err
	}

	return &UserRecord{
		ID:           id,
		Username:     cleanUsername,
		Email:        cleanEmail,
		PasswordHash: hash,
		Role:         role,
	}, nil
}

// Authenticate returns the record whose username and password match, or nil.
// Unknown users, wrong passwords and storage failures are indistinguishable
// to the caller; storage failures are logged.
func (s *Service) Authenticate(ctx context.Context, username, password string) *UserRecord {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.authenticate")

	user := s.authenticate(ctx, username, password)

	result := ResultSuccess
	if user == nil {
		result = ResultRejected
	}
	s.finish(span, OperationAuthenticate, start, result, nil)
	return user
}

func (s *Service) authenticate(ctx context.Context, username, password string) *UserRecord {
	cleanUsername := sanitize.Username(username)
	if cleanUsername == "" {
		s.hasher.Verify(password, s.dummyHash)
		return nil
	}

	user, err := s.users.GetByUsername(ctx, cleanUsername)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "credential lookup failed", err)
		}
		// Always verify so a missing user costs the same as a wrong password.
		s.hasher.Verify(password, s.dummyHash)
		return nil
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil
	}
	return user
}

// Authorize reports whether user holds requiredRole. An empty requiredRole
// admits any authenticated user. Roles are flat and compared case-insensitively.
func (s *Service) Authorize(user *UserRecord, requiredRole string) bool {
	if user == nil {
		return false
	}
	if requiredRole == "" {
		return true
	}
	return strings.EqualFold(user.Role, requiredRole)
}

// IssueToken creates a session token for username. A blank username is
// rejected here; the stores themselves accept any principal.
func (s *Service) IssueToken(ctx context.Context, username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", InvalidInput("username")
	}
	return s.tokens.Issue(ctx, username)
}

// Login authenticates and issues a session token.
// Every credential failure yields the same AUTH_INVALID_CREDENTIALS error.
func (s *Service) Login(ctx context.Context, username, password string) (session *Session, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() { s.finish(span, OperationLogin, start, loginResult(err), err) }()

	user := s.authenticate(ctx, username, password)
	if user == nil {
		return nil, invalidCredentials()
	}

	token, err := s.tokens.Issue(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: user}, nil
}

// ResolveToken returns the record of the user a token was issued to.
// Unknown tokens and tokens of users that no longer resolve yield SESSION_INVALID.
func (s *Service) ResolveToken(ctx context.Context, token string) (user *UserRecord, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.resolve_token")
	defer func() { s.finish(span, OperationResolveToken, start, loginResult(err), err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, sessionInvalid()
	}

	username, ok, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sessionInvalid()
	}

	user, err = s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, sessionInvalid()
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes a token and reports whether it was live.
func (s *Service) Logout(ctx context.Context, token string) (revoked bool, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.logout")
	defer func() {
		result := ResultSuccess
		switch {
		case err != nil:
			result = ResultError
		case !revoked:
			result = ResultRejected
		}
		s.finish(span, OperationLogout, start, result, err)
	}()

	return s.tokens.Revoke(ctx, strings.TrimSpace(token))
}

// CountUsers returns the number of stored credential records.
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func (s *Service) finish(span trace.Span, operation string, start time.Time, result string, err error) {
	span.SetAttributes(attribute.String("auth.result", result))
	if err != nil && result == ResultError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	RecordOperation(operation, result, time.Since(start))
}

func registerResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrInvalidInput):
		return ResultInvalidInput
	case errors.Is(err, ErrDuplicateUsername):
		return ResultDuplicate
	default:
		return ResultError
	}
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrSessionInvalid):
		return ResultRejected
	default:
		return ResultError
	}
}
