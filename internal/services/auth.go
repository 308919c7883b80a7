package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := as.userRepo.GetByEmails(ctx, nil, []string{user.Email})
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ID = uuid.New()

	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		as.log.Error("RegisterUser failed", "error", err)
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return "", "", fmt.Errorf("load user by email: %w", err)
	}
	if len(users) == 0 {
		return "", "", fmt.Errorf("invalid email or password")
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", fmt.Errorf("invalid email or password")
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := &types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{userToken}); cErr != nil {
			return fmt.Errorf("create user token: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", fmt.Errorf("no refresh token in request context")
	}

	var accessToken, newRefreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if ftErr != nil {
			return fmt.Errorf("fetch refresh token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return fmt.Errorf("unknown refresh token")
		}
		existingToken := foundTokens[0]
		if existingToken.ExpiresAt.Before(time.Now()) {
			_ = as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID})
			return fmt.Errorf("refresh token expired")
		}

		users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existingToken.UserID})
		if uErr != nil || len(users) == 0 {
			return fmt.Errorf("load user for refresh token")
		}
		user := users[0]

		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		newUserToken := &types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{newUserToken}); cErr != nil {
			return fmt.Errorf("create rotated user token: %w", cErr)
		}
		if dErr := as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID}); dErr != nil {
			return fmt.Errorf("delete old refresh token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return fmt.Errorf("no access token in request context")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if ftErr != nil {
			return fmt.Errorf("find user token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(foundTokens))
		for _, t := range foundTokens {
			ids = append(ids, t.ID)
		}
		return as.userTokenRepo.FullDeleteByIDs(ctx, tx, ids)
	})
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if ftErr == nil && len(foundTokens) > 0 {
		rd.RefreshToken = foundTokens[0].RefreshToken
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
