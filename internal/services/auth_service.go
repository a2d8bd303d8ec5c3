package services

import (
	"context"
	"time"

	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the result of resolving inbound credentials. Anonymous
// identities still carry a stable user id assigned by the surrounding
// application on first contact.
type Identity struct {
	UserID      uuid.UUID
	IsAnonymous bool
}

// Credentials is whatever the connection carried: a handshake token from the
// auth frame, or one captured from the upgrade request.
type Credentials struct {
	Token string
}

// AccessClaims is the JWT claim set minted by the surrounding application.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous,omitempty"`
	jwt.RegisteredClaims
}

// AuthService resolves identities from access tokens and authorizes them
// against a conversation's participant list or the owning practice's
// membership. It is the default implementation of the resolver capability
// the hubs consume.
type AuthService struct {
	secret           []byte
	conversationRepo repository.ConversationRepository
}

func NewAuthService(secret string, conversationRepo repository.ConversationRepository) *AuthService {
	return &AuthService{
		secret:           []byte(secret),
		conversationRepo: conversationRepo,
	}
}

func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, intake_errors.ErrUnauthorized
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, intake_errors.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, intake_errors.ErrUnauthorized
	}
	return claims, nil
}

// IssueAccessToken mints a short-lived access token. Production tokens come
// from the surrounding application; this exists for tooling and tests.
func (s *AuthService) IssueAccessToken(userID uuid.UUID, anonymous bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:    userID.String(),
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ResolveIdentity validates credentials and returns the caller's identity.
// Any failure maps to ErrUnauthorized; the hubs translate that into an
// auth.error frame and close the socket.
func (s *AuthService) ResolveIdentity(ctx context.Context, credentials Credentials) (Identity, error) {
	claims, err := s.ParseAccessToken(credentials.Token)
	if err != nil {
		return Identity{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, intake_errors.ErrUnauthorized
	}
	return Identity{UserID: userID, IsAnonymous: claims.Anonymous}, nil
}

// Authorize checks that the user may read/write the conversation: either a
// listed participant or a member of the owning practice.
func (s *AuthService) Authorize(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := s.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	member, err := s.conversationRepo.IsPracticeMember(ctx, conv.PracticeID, userID)
	if err != nil {
		return err
	}
	if !member {
		return intake_errors.ErrForbidden
	}
	return nil
}
