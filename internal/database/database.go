package database

import (
	"fmt"

	"github.com/shoppy/backend/internal/config"
	"github.com/shoppy/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. The unique (cart_id, user_id) index
// on cart_memberships and the unique token index on invitations back the
// at-most-once guarantees of invitation acceptance.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Cart{},
		&models.CartMembership{},
		&models.Product{},
		&models.Invitation{},
		&models.CatalogItem{},
	)
}
