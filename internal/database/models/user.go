package models

type User struct {
	Base
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Relationships
	SavedOrganizations []SavedOrganization `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	SavedAnimals       []SavedAnimal       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}
