package models

// Ingredient is one entry in a recipe's ordered ingredient list.
//
// Updates replace the full set rather than diffing it; sort_order is always
// reassigned from the incoming list's position.
type Ingredient struct {
	BaseModel

	RecipeID    string  `gorm:"type:uuid;not null;index:idx_ingredients_recipe_order" json:"recipe_id"`
	Amount      string  `gorm:"not null" json:"amount"`
	Title       string  `gorm:"not null" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	SortOrder   int     `gorm:"not null;default:0;index:idx_ingredients_recipe_order" json:"sort_order"`

	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}
