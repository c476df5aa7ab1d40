package petfinder

import (
	"strconv"
	"time"
)

// TokenLifetime is the longest a bearer token is trusted, regardless of what
// the token endpoint reports.
const TokenLifetime = time.Hour

// Credential is a bearer token for the catalog API together with the moment
// it stops being trusted. It is handed to the client on every call.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the credential can still be used at now.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

type Photo struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
	Full   string `json:"full"`
}

type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type Contact struct {
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

type Breeds struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Mixed     bool   `json:"mixed"`
	Unknown   bool   `json:"unknown"`
}

type Animal struct {
	ID             int64   `json:"id"`
	OrganizationID string  `json:"organization_id"`
	URL            string  `json:"url"`
	Type           string  `json:"type"`
	Species        string  `json:"species"`
	Breeds         Breeds  `json:"breeds"`
	Age            string  `json:"age"`
	Gender         string  `json:"gender"`
	Size           string  `json:"size"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Photos         []Photo `json:"photos"`
	Status         string  `json:"status"`
	Contact        Contact `json:"contact"`
	PublishedAt    string  `json:"published_at"`
}

// Key is the id used for the local cache and saved-item records.
func (a Animal) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// PhotoURL returns the first medium photo, or "" when there is none.
func (a Animal) PhotoURL() string {
	return firstMedium(a.Photos)
}

type Organization struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	Address          Address `json:"address"`
	URL              string  `json:"url"`
	Website          string  `json:"website"`
	MissionStatement string  `json:"mission_statement"`
	Photos           []Photo `json:"photos"`
}

func (o Organization) PhotoURL() string {
	return firstMedium(o.Photos)
}

type AnimalType struct {
	Name    string   `json:"name"`
	Coats   []string `json:"coats"`
	Colors  []string `json:"colors"`
	Genders []string `json:"genders"`
}

type Pagination struct {
	CountPerPage int `json:"count_per_page"`
	TotalCount   int `json:"total_count"`
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
}

type AnimalPage struct {
	Animals    []Animal   `json:"animals"`
	Pagination Pagination `json:"pagination"`
}

type OrganizationPage struct {
	Organizations []Organization `json:"organizations"`
	Pagination    Pagination     `json:"pagination"`
}

type animalResponse struct {
	Animal Animal `json:"animal"`
}

type organizationResponse struct {
	Organization Organization `json:"organization"`
}

type typesResponse struct {
	Types []AnimalType `json:"types"`
}

func firstMedium(photos []Photo) string {
	if len(photos) == 0 {
		return ""
	}
	return photos[0].Medium
}
