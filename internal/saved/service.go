package saved

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

// Catalog fetches the details needed to cache an item the first time it is
// saved. *petfinder.Client satisfies it.
type Catalog interface {
	GetAnimal(ctx context.Context, cred petfinder.Credential, id string) (*petfinder.Animal, error)
	GetOrganization(ctx context.Context, cred petfinder.Credential, id string) (*petfinder.Organization, error)
}

type Service struct {
	db      *gorm.DB
	catalog Catalog
	logger  *slog.Logger
}

func NewService(db *gorm.DB, catalog Catalog, logger *slog.Logger) *Service {
	return &Service{db: db, catalog: catalog, logger: logger}
}

// ToggleAnimal saves the animal for the user, or removes it if it was
// already saved. It reports whether the animal is saved afterwards.
func (s *Service) ToggleAnimal(ctx context.Context, userID uuid.UUID, cred petfinder.Credential, animalID string) (bool, error) {
	var entity interface{}

	cached, err := s.exists(ctx, &models.Animal{}, animalID)
	if err != nil {
		return false, err
	}
	if !cached {
		a, err := s.catalog.GetAnimal(ctx, cred, animalID)
		if err != nil {
			return false, fmt.Errorf("fetching animal %s: %w", animalID, err)
		}
		entity = &models.Animal{
			ID:          animalID,
			Name:        a.Name,
			ImageURL:    imageOrPlaceholder(a.PhotoURL()),
			Description: a.Description,
		}
	}

	saved, err := s.toggle(ctx, userID, entity,
		&models.SavedAnimal{}, "user_id = ? AND animal_id = ?", animalID,
		&models.SavedAnimal{UserID: userID, AnimalID: animalID},
	)
	if err != nil {
		return false, err
	}

	s.logger.Debug("toggled saved animal", "user_id", userID, "animal_id", animalID, "saved", saved)
	return saved, nil
}

// ToggleOrganization is ToggleAnimal for organizations.
func (s *Service) ToggleOrganization(ctx context.Context, userID uuid.UUID, cred petfinder.Credential, orgID string) (bool, error) {
	var entity interface{}

	cached, err := s.exists(ctx, &models.Organization{}, orgID)
	if err != nil {
		return false, err
	}
	if !cached {
		o, err := s.catalog.GetOrganization(ctx, cred, orgID)
		if err != nil {
			return false, fmt.Errorf("fetching organization %s: %w", orgID, err)
		}
		entity = &models.Organization{
			ID:               orgID,
			Name:             o.Name,
			ImageURL:         imageOrPlaceholder(o.PhotoURL()),
			MissionStatement: o.MissionStatement,
		}
	}

	saved, err := s.toggle(ctx, userID, entity,
		&models.SavedOrganization{}, "user_id = ? AND organization_id = ?", orgID,
		&models.SavedOrganization{UserID: userID, OrganizationID: orgID},
	)
	if err != nil {
		return false, err
	}

	s.logger.Debug("toggled saved organization", "user_id", userID, "organization_id", orgID, "saved", saved)
	return saved, nil
}

// toggle runs the write half of a toggle in one transaction: the user must
// exist, entity (when non-nil) is inserted, then the join row is removed if
// present and inserted otherwise.
func (s *Service) toggle(ctx context.Context, userID uuid.UUID, entity interface{}, joinModel interface{}, joinWhere, itemID string, join interface{}) (bool, error) {
	var saved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}

		if entity != nil {
			// Another request may have cached the same item meanwhile.
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entity).Error; err != nil {
				return fmt.Errorf("caching item %s: %w", itemID, err)
			}
		}

		res := tx.Where(joinWhere, userID, itemID).Delete(joinModel)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			saved = false
			return nil
		}

		if err := tx.Create(join).Error; err != nil {
			return fmt.Errorf("saving item %s: %w", itemID, err)
		}
		saved = true
		return nil
	})
	return saved, err
}

// AnimalIDs returns the set of animal ids the user has saved.
func (s *Service) AnimalIDs(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.SavedAnimal{}).
		Where("user_id = ?", userID).
		Pluck("animal_id", &ids).Error; err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (s *Service) OrganizationIDs(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.SavedOrganization{}).
		Where("user_id = ?", userID).
		Pluck("organization_id", &ids).Error; err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// Animals returns the cached animals the user has saved, oldest save first.
func (s *Service) Animals(ctx context.Context, userID uuid.UUID) ([]models.Animal, error) {
	var animals []models.Animal
	err := s.db.WithContext(ctx).
		Joins("JOIN saved_animals ON saved_animals.animal_id = animals.id").
		Where("saved_animals.user_id = ?", userID).
		Order("saved_animals.created_at ASC").
		Find(&animals).Error
	return animals, err
}

func (s *Service) Organizations(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN saved_organizations ON saved_organizations.organization_id = organizations.id").
		Where("saved_organizations.user_id = ?", userID).
		Order("saved_organizations.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}

func (s *Service) exists(ctx context.Context, model interface{}, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func imageOrPlaceholder(url string) string {
	if url == "" {
		return models.PlaceholderImageURL
	}
	return url
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
