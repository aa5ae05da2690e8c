package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	JobTitle     string      `json:"jobTitle"`
	Location     string      `json:"location"`
	Friends      []uuid.UUID `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Profile is the password-free projection of a User handed to clients and
// stored in the cache.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	JobTitle  string    `json:"jobTitle"`
	Location  string    `json:"location"`
}

type ProfileUpdate struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	JobTitle  *string `json:"jobTitle" validate:"omitempty,max=200"`
	Location  *string `json:"location" validate:"omitempty,max=200"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		JobTitle:  u.JobTitle,
		Location:  u.Location,
	}
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u User) IsFriend(id uuid.UUID) bool {
	for _, friend := range u.Friends {
		if friend == id {
			return true
		}
	}
	return false
}
