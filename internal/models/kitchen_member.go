package models

import "time"

// KitchenMember is the explicit join row between kitchens and users.
//
// The composite primary key is the storage-level guarantee that a user holds
// at most one membership per kitchen, including under concurrent redemption
// of the same invitation token.
type KitchenMember struct {
	KitchenID string    `gorm:"primaryKey;type:uuid" json:"kitchen_id"`
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Kitchen *Kitchen `gorm:"foreignKey:KitchenID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName pins the join table shared with the many2many relations.
func (KitchenMember) TableName() string {
	return "kitchen_members"
}
