package models

// Recipe belongs to exactly one kitchen and is removed with it.
type Recipe struct {
	BaseModel

	KitchenID   string  `gorm:"type:uuid;not null;index" json:"kitchen_id"`
	CreatedBy   string  `gorm:"type:uuid;not null" json:"created_by"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	ImagePath   *string `json:"-"`

	Kitchen     *Kitchen     `gorm:"foreignKey:KitchenID;constraint:OnDelete:CASCADE" json:"-"`
	Creator     *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Ingredients []Ingredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients,omitempty"`

	ImageURL string `gorm:"-" json:"image_url,omitempty"`
}
