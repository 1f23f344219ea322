package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/models"
)

type RegisterInput struct {
	Email    string
	FullName string
	Age      int
	Gender   string
	Username string
	Password string
}

type Counts struct {
	Photo          int64 `json:"Photo"`
	Recommendation int64 `json:"Recommendation"`
	Feedback       int64 `json:"Feedback"`
}

// Profile is the user plus the relation counts the profile page shows.
type Profile struct {
	models.User
	Count Counts `json:"_count"`
}

// Service implements registration, login and token checks. The latest
// issued token is stored on the user and is the only one accepted, so a
// new login ends the previous session.
type Service struct {
	db     *gorm.DB
	tokens *TokenIssuer
}

func NewService(db *gorm.DB, tokens *TokenIssuer) *Service {
	return &Service{db: db, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	gender := models.Gender(strings.ToLower(strings.TrimSpace(in.Gender)))

	switch {
	case in.Email == "":
		return nil, "", apperr.Validation("Email is required")
	case in.Username == "":
		return nil, "", apperr.Validation("Username is required")
	case in.Password == "":
		return nil, "", apperr.Validation("Password is required")
	case gender != models.GenderMale && gender != models.GenderFemale:
		return nil, "", apperr.Validation("Gender must be male or female")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, "", errors.Wrap(err, "check existing email")
	}
	if existing > 0 {
		return nil, "", apperr.Conflict("User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	user := &models.User{
		Email:          in.Email,
		FullName:       in.FullName,
		Age:            in.Age,
		Gender:         gender,
		Username:       in.Username,
		HashedPassword: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperr.Conflict("Username or email already in use")
		}
		return nil, "", errors.Wrap(err, "create user")
	}

	token, err := s.startSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login answers the same error for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, "", apperr.InvalidCredentials()
	}

	token, err := s.startSession(ctx, &user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// LoginWithEmail starts a session for an account already verified by an
// OAuth provider.
func (s *Service) LoginWithEmail(ctx context.Context, email string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.NotFound("No account is registered with this email")
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "find user")
	}

	token, err := s.startSession(ctx, &user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *Service) startSession(ctx context.Context, user *models.User) (string, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("jwt_token", token).Error
	if err != nil {
		return "", errors.Wrap(err, "store token")
	}
	user.JWTToken = &token
	return token, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(ctx context.Context, token string) (uint, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "Invalid token", Err: err}
	}

	var user models.User
	err = s.db.WithContext(ctx).Select("id", "jwt_token").First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.Unauthorized("Invalid token")
	}
	if err != nil {
		return 0, errors.Wrap(err, "load session")
	}
	if user.JWTToken == nil || *user.JWTToken != token {
		return 0, apperr.Unauthorized("Session has been replaced or ended")
	}
	return user.ID, nil
}

// Logout ends the current session.
func (s *Service) Logout(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("jwt_token", nil).Error
	return errors.Wrap(err, "clear token")
}

func (s *Service) Profile(ctx context.Context, userID uint) (*Profile, error) {
	db := s.db.WithContext(ctx)

	var p Profile
	err := db.First(&p.User, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}

	if err := db.Model(&models.Photo{}).Where("user_id = ?", userID).Count(&p.Count.Photo).Error; err != nil {
		return nil, errors.Wrap(err, "count photos")
	}
	if err := db.Model(&models.Recommendation{}).Where("user_id = ?", userID).Count(&p.Count.Recommendation).Error; err != nil {
		return nil, errors.Wrap(err, "count recommendations")
	}
	if err := db.Model(&models.Feedback{}).Where("user_id = ?", userID).Count(&p.Count.Feedback).Error; err != nil {
		return nil, errors.Wrap(err, "count feedback")
	}
	return &p, nil
}
