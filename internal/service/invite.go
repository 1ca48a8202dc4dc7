package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/engine"
)

// Common invite errors.
var (
	ErrInviteInvalid = errors.New("invite token is not valid")
	ErrInviteExpired = errors.New("invite token has expired")
)

// InviteClaims extends JWT standard claims with the candidate context the
// interview runs against. The token is minted by the recruitment backend
// (or cmd/mkinvite for testing) and admits exactly one candidate.
type InviteClaims struct {
	jwt.RegisteredClaims
	CandidateRef string   `json:"candidate_ref"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills,omitempty"`
}

// InviteService signs and verifies interview invite tokens.
type InviteService struct {
	cfg *config.Config
}

// NewInviteService creates a new InviteService.
func NewInviteService(cfg *config.Config) *InviteService {
	return &InviteService{cfg: cfg}
}

// CreateToken mints an invite token for one candidate.
func (s *InviteService) CreateToken(candidateRef, name string, skills []string) (string, error) {
	now := time.Now()

	claims := InviteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   candidateRef,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.InviteExpiry)),
		},
		CandidateRef: candidateRef,
		Name:         name,
		Skills:       skills,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.InviteSecret))
	if err != nil {
		return "", fmt.Errorf("sign invite token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies an invite token and returns the candidate context
// it admits.
func (s *InviteService) ValidateToken(tokenString string) (engine.CandidateContext, error) {
	var claims InviteClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.InviteSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return engine.CandidateContext{}, ErrInviteExpired
		}
		return engine.CandidateContext{}, ErrInviteInvalid
	}
	if !token.Valid || claims.CandidateRef == "" {
		return engine.CandidateContext{}, ErrInviteInvalid
	}

	return engine.CandidateContext{
		CandidateRef: claims.CandidateRef,
		Name:         claims.Name,
		Skills:       claims.Skills,
	}, nil
}
