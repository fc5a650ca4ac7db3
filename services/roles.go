package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// RoleService verwaltet Profile und Rollen der Nutzer.
type RoleService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewRoleService erstellt eine neue Instanz des RoleService.
func NewRoleService(db *gorm.DB, logger *zap.Logger) *RoleService {
	return &RoleService{DB: db, Logger: logger}
}

// EnsureProfile legt das Profil beim ersten Kontakt an und hält Name/E-Mail aktuell.
func (r *RoleService) EnsureProfile(ctx context.Context, userID, fullName, email string) (*models.Profile, error) {
	if uuid.Validate(userID) != nil {
		return nil, invalidInput("user id must be a UUID")
	}
	var profile models.Profile
	err := r.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.Profile{Base: models.Base{ID: userID}, FullName: strings.TrimSpace(fullName), Email: email}
		if err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(fullName); name != "" && name != profile.FullName {
		updates["full_name"] = name
	}
	if email != "" && email != profile.Email {
		updates["email"] = email
	}
	if len(updates) > 0 {
		if err := r.DB.WithContext(ctx).Model(&profile).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

// Profile lädt ein Profil.
func (r *RoleService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	if err := checkID(userID, "profile"); err != nil {
		return nil, err
	}
	var profile models.Profile
	if err := r.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "profile")
	}
	return &profile, nil
}

// Roles liefert alle Rollen eines Nutzers.
func (r *RoleService) Roles(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []models.Role
	if uuid.Validate(userID) != nil {
		return roles, nil
	}
	err := r.DB.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("role").
		Pluck("role", &roles).Error
	return roles, err
}

// HasAnyRole meldet, ob der Nutzer mindestens eine der Rollen besitzt.
func (r *RoleService) HasAnyRole(ctx context.Context, userID string, roles ...models.Role) (bool, error) {
	if uuid.Validate(userID) != nil || len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ? AND role IN ?", userID, roles).
		Count(&count).Error
	return count > 0, err
}

// Grant vergibt eine Rolle. Bereits vorhandene Rollen sind kein Fehler.
func (r *RoleService) Grant(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return invalidInput("unknown role %q", role)
	}
	if _, err := r.Profile(ctx, userID); err != nil {
		return err
	}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "role"}}, DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
	if err != nil {
		return err
	}
	r.Logger.Info("Role granted", zap.String("user_id", userID), zap.String("role", string(role)))
	return nil
}

// Revoke entzieht eine Rolle.
func (r *RoleService) Revoke(ctx context.Context, userID string, role models.Role) error {
	if err := checkID(userID, "role"); err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Where("user_id = ? AND role = ?", userID, role).Delete(&models.UserRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.Logger.Info("Role revoked", zap.String("user_id", userID), zap.String("role", string(role)))
	return nil
}

// EligibleReviewers listet alle Profile, die als Gutachter zugewiesen werden dürfen.
func (r *RoleService) EligibleReviewers(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	sub := r.DB.Model(&models.UserRole{}).Select("user_id").Where("role IN ?", models.ReviewerRoles)
	err := r.DB.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("full_name").
		Find(&profiles).Error
	return profiles, err
}
