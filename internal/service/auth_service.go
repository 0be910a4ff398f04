package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrTokenScope         = errors.New("token does not grant access to this file")
)

// TokenType distinguishes operator sessions from download links.
type TokenType string

const (
	TokenTypeOperator TokenType = "operator"
	TokenTypeDownload TokenType = "download"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int       `json:"user_id"`
	Bundle    string    `json:"bundle,omitempty"`   // Download only
	Filename  string    `json:"filename,omitempty"` // Download only
}

// OperatorStore looks operators up.
type OperatorStore interface {
	GetByID(ctx context.Context, id int) (*model.Operator, error)
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
}

// AuthService handles operator login and token signing.
type AuthService struct {
	cfg       *config.Config
	operators OperatorStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, operators OperatorStore) *AuthService {
	return &AuthService{cfg: cfg, operators: operators}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login checks the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Operator, error) {
	op, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find operator: %w", err)
	}
	if err := s.CheckPassword(op.PasswordHash, password); err != nil {
		return "", nil, err
	}

	token, err := s.GenerateOperatorToken(op.ID)
	if err != nil {
		return "", nil, err
	}
	return token, op, nil
}

// Operator returns the operator behind a session.
func (s *AuthService) Operator(ctx context.Context, id int) (*model.Operator, error) {
	return s.operators.GetByID(ctx, id)
}

// GenerateOperatorToken creates a session JWT for an operator.
func (s *AuthService) GenerateOperatorToken(operatorID int) (string, error) {
	now := time.Now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(operatorID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeOperator,
		UserID:    operatorID,
	})
}

// GenerateDownloadToken creates a JWT that grants access to one file of one bundle only.
func (s *AuthService) GenerateDownloadToken(operatorID int, ref storage.Ref) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.cfg.DownloadExpiry)
	token, err := s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(operatorID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		TokenType: TokenTypeDownload,
		UserID:    operatorID,
		Bundle:    ref.Bundle,
		Filename:  ref.Name,
	})
	return token, expires, err
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenInvalidClaims)
	}

	return claims, nil
}

// ValidateDownloadToken checks that tokenStr is a download token for ref.
func (s *AuthService) ValidateDownloadToken(tokenStr string, ref storage.Ref) (*Claims, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeDownload {
		return nil, ErrWrongTokenType
	}
	if claims.Bundle != ref.Bundle || claims.Filename != ref.Name {
		return nil, ErrTokenScope
	}
	return claims, nil
}
