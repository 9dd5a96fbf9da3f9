// Package seed provisions the bootstrap superadmin account on startup.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/auth/password"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureBootstrapAdmin creates the configured superadmin account when it does
// not exist yet. The account starts with a forced password change so the
// bootstrap credential never survives first login.
func EnsureBootstrapAdmin(db *gorm.DB, log *zap.Logger, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil
	}
	if cfg.BootstrapAdminPassword == "" {
		log.Warn("bootstrap admin email configured without a password, skipping seed")
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user identitydomain.User
		err := tx.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}

		username := email
		if at := strings.Index(email, "@"); at > 0 {
			username = email[:at]
		}

		now := time.Now().UTC()
		user = identitydomain.User{
			ID:                 node.Generate(),
			Username:           username,
			Email:              email,
			FullName:           "Administrador",
			PasswordHash:       hashed,
			Role:               identitydomain.RoleSuperAdmin,
			Status:             identitydomain.StatusActive,
			ForcePasswordReset: true,
			PasswordChangedAt:  now,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}

		log.Info("bootstrap superadmin created", zap.String("username", username))
		return nil
	})
}
