package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Session, error)
	Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, revokedAt time.Time) error
	RevokeAllForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error)
}

type ResetRepository interface {
	Insert(ctx context.Context, db *gorm.DB, reset *PasswordReset) error
	FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*PasswordReset, error)
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, usedAt time.Time) error
	InvalidateForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, usedAt time.Time) error
	DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error)
}
