package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// CookieName is the session cookie.
const CookieName = "smartmarks_session"

const issuer = "smartmarks"

// SessionStore keeps the server-side half of a session. Deleting the
// record revokes every copy of the token.
type SessionStore interface {
	SaveSession(ctx context.Context, s domain.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (domain.Session, bool, error)
	DeleteSession(ctx context.Context, id string) error
}

// Verifier turns a session token into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Sessions issues and checks HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	store  SessionStore
	log    logger.Logger
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, store SessionStore, log logger.Logger) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue creates a session for id and returns its signed token.
func (s *Sessions) Issue(ctx context.Context, id Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, errors.New("issue session: empty user id")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	jti := ulid.Make().String()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}

	rec := domain.Session{ID: jti, UserID: id.UserID, Email: id.Email, ExpiresAt: exp}
	if err := s.store.SaveSession(ctx, rec, s.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and that the session was not revoked.
// Every failure is reported as domain.ErrUnauthenticated; the cause is
// logged at debug.
func (s *Sessions) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, domain.ErrUnauthenticated
	}

	c, err := s.parse(token)
	if err != nil {
		s.log.Debug("session token rejected", logger.Error(err))
		return Identity{}, domain.ErrUnauthenticated
	}

	rec, found, err := s.store.GetSession(ctx, c.ID)
	if err != nil {
		s.log.Warn("session lookup failed", logger.Error(err))
		return Identity{}, domain.NewError(domain.KindUnauthenticated, domain.ErrUnauthenticated.Message, err)
	}
	if !found || rec.UserID != c.Subject || rec.Expired(s.now()) {
		s.log.Debug("session revoked or expired", logger.Owner(c.Subject))
		return Identity{}, domain.ErrUnauthenticated
	}

	return Identity{UserID: c.Subject, Email: c.Email}, nil
}

// Revoke deletes the session behind token. An unparsable token is ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, c.ID)
}

func (s *Sessions) parse(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if c.Subject == "" || c.ID == "" {
		return nil, errors.New("token without subject or id")
	}
	return c, nil
}
