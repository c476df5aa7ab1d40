package models

import "time"

// Animal is the local copy of a Petfinder animal, created the first time any
// user saves it. ID is the Petfinder id in decimal form.
type Animal struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	ImageURL    string    `json:"img_url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Animal) TableName() string {
	return "animals"
}
