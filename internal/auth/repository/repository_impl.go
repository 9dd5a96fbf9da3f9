package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/locafrota/fleetsla/internal/auth/domain"
	"gorm.io/gorm"
)

type sessionRepo struct{}

type resetRepo struct{}

func New() (domain.SessionRepository, domain.ResetRepository) {
	return &sessionRepo{}, &resetRepo{}
}

func (r *sessionRepo) Insert(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, ip, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.RevokedAt,
		session.IP,
		session.UserAgent,
		session.CreatedAt,
	).Error
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, revokedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt).Error
}

func (r *sessionRepo) RevokeAllForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, revokedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt).Error
}

// DeleteExpired removes sessions past their expiry in bounded batches so the
// purge job never holds a long transaction.
func (r *sessionRepo) DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	tx := db.WithContext(ctx).Exec(
		`DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions WHERE expires_at < ? LIMIT ?
		)`,
		before, limit,
	)
	return tx.RowsAffected, tx.Error
}

func (r *resetRepo) Insert(ctx context.Context, db *gorm.DB, reset *domain.PasswordReset) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO password_resets (id, user_id, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reset.ID,
		reset.UserID,
		reset.TokenHash,
		reset.ExpiresAt,
		reset.UsedAt,
		reset.CreatedAt,
	).Error
}

func (r *resetRepo) FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	var reset domain.PasswordReset
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM password_resets WHERE token_hash = ?`, tokenHash,
	).Scan(&reset).Error
	if err != nil {
		return nil, err
	}
	if reset.ID == 0 {
		return nil, nil
	}
	return &reset, nil
}

func (r *resetRepo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, usedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt).Error
}

// InvalidateForUser burns every outstanding token for the user, so issuing a
// new link leaves exactly one redeemable token.
func (r *resetRepo) InvalidateForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, usedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.PasswordReset{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", usedAt).Error
}

func (r *resetRepo) DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	tx := db.WithContext(ctx).Exec(
		`DELETE FROM password_resets WHERE id IN (
			SELECT id FROM password_resets WHERE expires_at < ? OR used_at IS NOT NULL LIMIT ?
		)`,
		before, limit,
	)
	return tx.RowsAffected, tx.Error
}
