package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedOrganization records that a user saved ("liked") an organization.
type SavedOrganization struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID string    `gorm:"primaryKey"`
	CreatedAt      time.Time

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

func (SavedOrganization) TableName() string {
	return "saved_organizations"
}

// SavedAnimal records that a user saved ("liked") an animal.
type SavedAnimal struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnimalID  string    `gorm:"primaryKey"`
	CreatedAt time.Time

	Animal *Animal `gorm:"foreignKey:AnimalID;constraint:OnDelete:CASCADE"`
}

func (SavedAnimal) TableName() string {
	return "saved_animals"
}
