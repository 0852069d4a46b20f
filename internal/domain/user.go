package domain

// AccountStatus is the lifecycle state of a user account.
type AccountStatus string

const (
	AccountStatusActive          AccountStatus = "active"
	AccountStatusAutoDeactivated AccountStatus = "auto_deactivated"
)

// MembershipStatus is the membership tier of a user.
type MembershipStatus string

const (
	MembershipExclusive MembershipStatus = "exclusive"
	MembershipLegacy    MembershipStatus = "legacy"
)

// User is the subset of the users table this service reads.
type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	PushToken *string `json:"fcm_token,omitempty"`
}
