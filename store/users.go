package store

import (
	"context"

	"papertrail/auth"
	"papertrail/models"
)

func (s *Store) exists(ctx context.Context, model any, id int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, classify(err, "")
	}
	return count > 0, nil
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, &models.User{}, id)
}

func (s *Store) VenueExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, &models.Venue{}, id)
}

func (s *Store) GrantExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, &models.Grant{}, id)
}

// FirstAdminID liefert den ältesten User, dessen Rolle auf admin abgebildet wird.
func (s *Store) FirstAdminID(ctx context.Context) (int64, bool, error) {
	var rows []struct {
		ID       int64
		RoleName string
	}
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id, roles.role_name").
		Joins("JOIN roles ON roles.id = users.role_id").
		Order("users.id").
		Scan(&rows).Error
	if err != nil {
		return 0, false, classify(err, "")
	}
	for _, row := range rows {
		if auth.NormalizeRoleName(row.RoleName) == auth.RoleAdmin {
			return row.ID, true, nil
		}
	}
	return 0, false, nil
}

// FindUserByIdentifier sucht einen User über Email oder Benutzername, ohne
// Groß-/Kleinschreibung zu beachten.
func (s *Store) FindUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Role").
		Where("LOWER(email) = LOWER(?) OR LOWER(user_name) = LOWER(?)", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, classify(err, "User not found.")
	}
	return &user, nil
}
