package models

import "time"

// KitchenInvitation is a time-boxed, single-use token granting one email
// address the ability to join a specific kitchen.
//
// State is derived, never stored: pending (accepted_at null, unexpired),
// expired (accepted_at null, past expiry), accepted (accepted_at set).
type KitchenInvitation struct {
	BaseModel

	KitchenID  string     `gorm:"type:uuid;not null;index" json:"kitchen_id"`
	Email      string     `gorm:"not null;index" json:"email"`
	Token      string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`

	Kitchen *Kitchen `gorm:"foreignKey:KitchenID;constraint:OnDelete:CASCADE" json:"kitchen,omitempty"`
}

// IsExpired reports whether the invitation lapsed before now.
func (i *KitchenInvitation) IsExpired(now time.Time) bool {
	return i != nil && now.After(i.ExpiresAt)
}

// IsAccepted reports whether the invitation has already been redeemed.
func (i *KitchenInvitation) IsAccepted() bool {
	return i != nil && i.AcceptedAt != nil
}

// IsPending reports whether the invitation can still be redeemed.
func (i *KitchenInvitation) IsPending(now time.Time) bool {
	return i != nil && !i.IsAccepted() && !i.IsExpired(now)
}
