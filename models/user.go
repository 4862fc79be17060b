package models

import "time"

const (
	// DefaultLanguage is applied to new profiles until the user picks one.
	DefaultLanguage = "en"
	// MaxEventHistory bounds the per-user event history; older entries are dropped.
	MaxEventHistory = 50
)

// User models a registered marketplace account. The ID is generated at
// registration time and never changes. At most one user is "current"
// (authenticated) per session manager.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone,omitempty"`
	PasswordHash string      `json:"passwordHash,omitempty"`
	APIKey       string      `json:"apiKey,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Profile      UserProfile `json:"profile"`
}

// UserProfile holds the mutable per-user record. It is only ever mutated
// through a merge-update; UpdatedAt is refreshed on every mutation.
type UserProfile struct {
	Bio          string            `json:"bio,omitempty"`
	Address      string            `json:"address,omitempty"`
	City         string            `json:"city,omitempty"`
	State        string            `json:"state,omitempty"`
	Pincode      string            `json:"pincode,omitempty"`
	DateOfBirth  string            `json:"dateOfBirth,omitempty"`
	Gender       string            `json:"gender,omitempty"`
	Occupation   string            `json:"occupation,omitempty"`
	Company      string            `json:"company,omitempty"`
	Preferences  Preferences       `json:"preferences"`
	Avatar       string            `json:"avatar,omitempty"`
	SocialLinks  map[string]string `json:"socialLinks,omitempty"`
	EventHistory []EventRecord     `json:"eventHistory"`
	Favorites    []string          `json:"favorites"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Preferences captures user-level settings for the marketplace UI.
type Preferences struct {
	Language     string `json:"language"`
	Notifications bool  `json:"notifications"`
	EmailUpdates  bool  `json:"emailUpdates"`
}

// EventRecord is one booked event in a user's history. Records are
// prepended (newest first) and the history is truncated at MaxEventHistory.
type EventRecord struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	Date      time.Time `json:"date"`
	Workers   []string  `json:"workers"`
	Amount    float64   `json:"amount,omitempty"`
}

// DefaultProfile returns the profile assigned to a freshly registered user.
func DefaultProfile(now time.Time) UserProfile {
	return UserProfile{
		Preferences: Preferences{
			Language:      DefaultLanguage,
			Notifications: true,
			EmailUpdates:  true,
		},
		EventHistory: []EventRecord{},
		Favorites:    []string{},
		UpdatedAt:    now,
	}
}

// ProfileUpdate is a typed partial update for UserProfile. Pointer fields
// allow distinguishing "not set" (nil) from explicit values, so a merge
// never clobbers fields the caller did not touch.
type ProfileUpdate struct {
	Bio         *string           `json:"bio,omitempty"`
	Address     *string           `json:"address,omitempty"`
	City        *string           `json:"city,omitempty"`
	State       *string           `json:"state,omitempty"`
	Pincode     *string           `json:"pincode,omitempty"`
	DateOfBirth *string           `json:"dateOfBirth,omitempty"`
	Gender      *string           `json:"gender,omitempty"`
	Occupation  *string           `json:"occupation,omitempty"`
	Company     *string           `json:"company,omitempty"`
	Avatar      *string           `json:"avatar,omitempty"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`
}

// PreferencesUpdate is the partial form of Preferences.
type PreferencesUpdate struct {
	Language      *string `json:"language,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	EmailUpdates  *bool   `json:"emailUpdates,omitempty"`
}
