package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultProfileImage = "default-profile.png"
	DeletedUsername     = "[deleted]"
)

type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	DateOfBirth  time.Time `json:"dateOfBirth" bson:"date_of_birth"`
	ProfileImage string    `json:"profileImage" bson:"profile_image"`
	Role         string    `json:"role" bson:"role"`
	Followers    []string  `json:"followers" bson:"followers"`
	Following    []string  `json:"following" bson:"following"`
}

// UserUpdate is a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	Username     *string    `json:"username,omitempty" validate:"omitnil,min=1"`
	Email        *string    `json:"email,omitempty" validate:"omitnil,email"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	ProfileImage *string    `json:"profileImage,omitempty"`
}

func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.DateOfBirth == nil && u.ProfileImage == nil
}

// UserSummary is the public identity shown next to routes and comments.
type UserSummary struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

func (u *User) Summary() UserSummary {
	img := u.ProfileImage
	if img == "" {
		img = DefaultProfileImage
	}
	return UserSummary{ID: u.ID, Username: u.Username, ProfileImage: img}
}

// MissingUserSummary stands in for a referenced user that no longer exists.
func MissingUserSummary(id string) UserSummary {
	return UserSummary{ID: id, Username: DeletedUsername, ProfileImage: DefaultProfileImage}
}
