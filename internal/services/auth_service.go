package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

const minPasswordLength = 8

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var moderator models.Moderator
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&moderator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load moderator: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(moderator.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(&moderator)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.JWTAccessExpiry.Seconds()),
		Moderator: dto.ModeratorResponse{
			ID:    moderator.ID,
			Email: moderator.Email,
			Role:  moderator.Role,
		},
	}, nil
}

// CreateModerator adds a staff account. An existing account with the same
// email is returned unchanged together with ErrEmailTaken.
func (s *AuthService) CreateModerator(ctx context.Context, email, password, role string) (*models.Moderator, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLength {
		return nil, invalid("password", "email required and password must be at least %d characters", minPasswordLength)
	}
	if role == "" {
		role = models.RoleModerator
	}
	if role != models.RoleModerator && role != models.RoleAdmin {
		return nil, invalid("role", "must be moderator or admin")
	}

	var existing models.Moderator
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up moderator: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	moderator := models.Moderator{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.db.WithContext(ctx).Create(&moderator).Error; err != nil {
		return nil, fmt.Errorf("failed to create moderator: %w", err)
	}
	return &moderator, nil
}

func (s *AuthService) generateAccessToken(m *models.Moderator) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   m.ID.String(),
		"email": m.Email,
		"role":  m.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
