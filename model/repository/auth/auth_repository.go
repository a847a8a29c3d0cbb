package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	entity "backoffice.GO/model/entity"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// FindActiveToken returns a non-revoked, unexpired token with its user and role.
func (r *AuthRepository) FindActiveToken(token string, now time.Time) (*entity.APIToken, error) {
	var t entity.APIToken
	err := r.db.Preload("User.Role").
		Where("token = ? AND revoked = ?", token, false).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	if !t.Active(now) || t.User == nil || !t.User.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

// FindUserByUsername returns an active user with its role.
func (r *AuthRepository) FindUserByUsername(username string) (*entity.User, error) {
	var u entity.User
	err := r.db.Preload("Role").Where("username = ? AND is_active = ?", username, true).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AuthRepository) CreateUser(u *entity.User) error {
	return r.db.Create(u).Error
}

// EnsureRole returns the role called name, creating it with perms when missing.
func (r *AuthRepository) EnsureRole(name, description string, perms []string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.Where("name = ?", name).First(&role).Error
	if err == nil {
		return &role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	role = entity.Role{Name: name, Description: description, Permissions: perms}
	if err := r.db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateToken issues a random bearer token for userID. A zero ttl never expires.
func (r *AuthRepository) CreateToken(userID uint, ttl time.Duration) (*entity.APIToken, error) {
	t := entity.APIToken{
		UserID: userID,
		Token:  strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		t.ExpiresAt = &exp
	}
	if err := r.db.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *AuthRepository) RevokeToken(token string) error {
	return r.db.Model(&entity.APIToken{}).Where("token = ?", token).Update("revoked", true).Error
}
