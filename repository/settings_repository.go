package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	settingLLMProvider    = "llm_provider"
	settingLifetimeTokens = "lifetime_tokens"
)

// SettingsRepository reads and writes rows of system_settings
type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value for key, or "" when unset
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Set stores value for key
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	_, err := r.db.Exec(ctx, query, key, value)
	return err
}

// ActiveProvider returns the stored LLM provider name
func (r *SettingsRepository) ActiveProvider(ctx context.Context) (string, error) {
	return r.Get(ctx, settingLLMProvider)
}

// SetActiveProvider stores the LLM provider name
func (r *SettingsRepository) SetActiveProvider(ctx context.Context, provider string) error {
	return r.Set(ctx, settingLLMProvider, provider)
}

// AddLifetimeTokens atomically adds n to the lifetime token counter and returns the new total
func (r *SettingsRepository) AddLifetimeTokens(ctx context.Context, n int) (int64, error) {
	query := `
		INSERT INTO system_settings (key, value) VALUES ($1, $2::bigint::text)
		ON CONFLICT (key) DO UPDATE SET
			value = (COALESCE(NULLIF(system_settings.value, ''), '0')::bigint + $2::bigint)::text,
			updated_at = NOW()
		RETURNING value`

	var value string
	if err := r.db.QueryRow(ctx, query, settingLifetimeTokens, int64(n)).Scan(&value); err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// LifetimeTokens returns the lifetime token counter
func (r *SettingsRepository) LifetimeTokens(ctx context.Context) (int64, error) {
	value, err := r.Get(ctx, settingLifetimeTokens)
	if err != nil || value == "" {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// ResetLifetimeTokens sets the lifetime token counter to zero
func (r *SettingsRepository) ResetLifetimeTokens(ctx context.Context) error {
	return r.Set(ctx, settingLifetimeTokens, "0")
}
