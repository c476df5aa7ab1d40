package models

import "time"

// Organization is the local copy of a Petfinder organization, created the
// first time any user saves it.
type Organization struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"not null" json:"name"`
	ImageURL         string    `json:"img_url"`
	MissionStatement string    `json:"mission_statement"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}
