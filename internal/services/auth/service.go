// Package auth verifies identity-provider bearer tokens and re-resolves the
// caller's role and agency from the profile store on every request.
package auth

import (
	"context"
	"errors"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Identity is the server-side view of the caller.
type Identity struct {
	UserID   string
	Role     models.Role
	AgencyID *string
}

// Can returns the caller's capability row.
func (i Identity) Can() models.Capabilities {
	return i.Role.Capabilities()
}

// InAgency reports whether the caller belongs to agencyID.
func (i Identity) InAgency(agencyID *string) bool {
	return i.AgencyID != nil && agencyID != nil && *i.AgencyID == *agencyID
}

type Service interface {
	// VerifyToken checks the signature, expiry and audience of a bearer token
	// and returns its subject.
	VerifyToken(token string) (string, error)
	// Resolve loads the caller's current role and agency.
	Resolve(ctx context.Context, userID string) (Identity, error)
	// Authenticate is VerifyToken followed by Resolve.
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// Config holds the token verification settings.
type Config struct {
	Secret   string
	Audience string
	Leeway   time.Duration
}

type service struct {
	profiles repositories.ProfileRepository
	config   Config
	log      logrus.FieldLogger
}

func NewService(profiles repositories.ProfileRepository, config Config, log logrus.FieldLogger) Service {
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		profiles: profiles,
		config:   config,
		log:      log.WithField("component", "auth"),
	}
}

func (s *service) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperrors.Unauthenticated("missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.config.Leeway),
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	claims := &models.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		s.log.WithError(err).Debug("token rejected")
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.Unauthenticated("token expired")
		}
		return "", apperrors.Unauthenticated("invalid token")
	}

	if claims.UserID() == "" {
		return "", apperrors.Unauthenticated("token has no subject")
	}
	return claims.UserID(), nil
}

func (s *service) Resolve(ctx context.Context, userID string) (Identity, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return Identity{}, apperrors.Unauthenticated("no profile for token subject")
		}
		return Identity{}, apperrors.Internal("failed to load caller profile", err)
	}
	if !profile.IsActive {
		return Identity{}, apperrors.Unauthorized("profile is deactivated")
	}
	role, err := profile.Role()
	if err != nil {
		s.log.WithField("user_id", userID).WithError(err).Warn("profile has unknown role")
		return Identity{}, apperrors.Unauthorized("profile role is not recognised")
	}

	return Identity{
		UserID:   profile.ID,
		Role:     role,
		AgencyID: profile.AgencyID,
	}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (Identity, error) {
	userID, err := s.VerifyToken(token)
	if err != nil {
		return Identity{}, err
	}
	return s.Resolve(ctx, userID)
}

// SignToken issues an HS256 token shaped like the identity provider's. It is
// used by local tooling and tests; production tokens come from the provider.
func SignToken(secret, audience, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
