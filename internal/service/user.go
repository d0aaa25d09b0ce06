package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUserParams describes an account to provision locally.
type CreateUserParams struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// CreateUser stores a user with a bcrypt password hash. Accounts normally come
// from the identity provider; this is used for seeding.
func (s *UserService) CreateUser(ctx context.Context, p CreateUserParams) (*models.User, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(p.Email) == "" {
		verr.Add("email", "This field is required.")
	}
	if strings.TrimSpace(p.Username) == "" {
		verr.Add("username", "This field is required.")
	}
	if p.Password == "" {
		verr.Add("password", "This field is required.")
	}
	if !verr.Empty() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		Username:     strings.TrimSpace(p.Username),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: "username", Message: "A user with that username or email already exists."}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// CheckPassword reports whether password matches the user's stored hash.
func (s *UserService) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// IsAdmin reports whether the user holds the admin role.
func (s *UserService) IsAdmin(ctx context.Context, id uint) (bool, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// GetUser returns the user as seen by viewerID (0 for anonymous).
func (s *UserService) GetUser(ctx context.Context, viewerID, id uint) (*types.UserResponse, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed, err := subscribedTo(ctx, s.db, viewerID, []uint{user.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	resp := toUserResponse(user, subscribed[user.ID])
	return &resp, nil
}

func (s *UserService) ListUsers(ctx context.Context, viewerID uint, page types.Page) ([]types.UserResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	paged := query.Order("id")
	if page.Limit > 0 {
		paged = paged.Offset(page.Offset()).Limit(page.Limit)
	}
	if err := paged.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := subscribedTo(ctx, s.db, viewerID, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	out := make([]types.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i], subscribed[users[i].ID]))
	}
	return out, total, nil
}
