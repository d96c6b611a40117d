package models

// Kitchen is a named, owned workspace shared between members.
//
// The owner is always also a member; KitchenService.Create inserts the
// membership row in the same transaction as the kitchen itself.
type Kitchen struct {
	BaseModel

	Name    string `gorm:"not null" json:"name"`
	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`

	Owner       *User               `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members     []User              `gorm:"many2many:kitchen_members;" json:"members,omitempty"`
	Recipes     []Recipe            `gorm:"constraint:OnDelete:CASCADE" json:"recipes,omitempty"`
	Invitations []KitchenInvitation `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	MemberCount int64 `gorm:"-" json:"member_count,omitempty"`
	RecipeCount int64 `gorm:"-" json:"recipe_count,omitempty"`
}

// IsOwner reports whether the given user created the kitchen.
func (k *Kitchen) IsOwner(userID string) bool {
	return k != nil && userID != "" && k.OwnerID == userID
}
