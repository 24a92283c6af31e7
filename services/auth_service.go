package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"traveltales/models"
	"traveltales/store"
	apierrors "traveltales/utils/errors"
	"traveltales/utils/validation"
)

// Claims carried by a session token.
type Claims struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 session tokens.
type AuthService struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{secret: []byte(secret), ttl: ttl}
}

func (a *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (a *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type RegisterInput struct {
	Username    string `json:"username" validate:"required,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	DateOfBirth string `json:"dateOfBirth"`
	Role        string `json:"role" validate:"omitempty,oneof=user admin"`
}

type LoginResult struct {
	Token     string   `json:"token"`
	UserID    string   `json:"userId"`
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// Register creates a new user
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	dob, err := ParseDate(input.DateOfBirth)
	if err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierrors.Wrap(err, "HASH_ERROR", "Server error during registration", http.StatusInternalServerError)
	}

	role := models.RoleUser
	if input.Role == models.RoleAdmin && s.allowAdminSignup {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(passwordHash),
		DateOfBirth:  dob,
		Role:         role,
		Followers:    []string{},
		Following:    []string{},
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apierrors.Conflict("Email is already registered")
		}
		return nil, apierrors.Dependency(err, "create user")
	}
	s.cache.SetUser(ctx, user)
	return user, nil
}

// Login authenticates a user by email and returns a signed token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := apierrors.NewAPIError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusBadRequest)

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalid
		}
		return nil, apierrors.Dependency(err, "find user by email")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, apierrors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	s.cache.SetUser(ctx, user)

	return &LoginResult{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Followers: user.Followers,
		Following: user.Following,
	}, nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. An empty string is the zero time.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apierrors.Validation("dateOfBirth must be a date (YYYY-MM-DD)")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
