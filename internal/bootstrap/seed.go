package bootstrap

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/entity"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Pharmacy{},
		&entity.PharmacyContact{},
		&entity.TradeRecord{},
	)
}

// AdminSeed is the administrator account created on first start.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

func SeedAdminUser(ctx context.Context, db *gorm.DB, seed AdminSeed) error {
	var count int64
	if err := db.WithContext(ctx).Model(&entity.User{}).
		Where("username = ? OR email = ?", seed.Username, seed.Email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &entity.User{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: string(hashedPasswordBytes),
		Role:         entity.RoleAdmin,
	}

	admin.PreInsert(time.Now().UTC())
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	log.Printf("Admin user %q seeded", seed.Username)
	return nil
}
