package database

import (
	"gorm.io/gorm"

	"github.com/kitchenshare/kitchenshare/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
//
// KitchenMember is migrated explicitly so the join table carries its
// composite primary key and created_at column.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Kitchen{}, "Members", &models.KitchenMember{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&models.User{}, "Kitchens", &models.KitchenMember{}); err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Kitchen{},
		&models.KitchenMember{},
		&models.KitchenInvitation{},
		&models.Recipe{},
		&models.Ingredient{},
		&models.AuditLog{},
	)
}
