package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/llm"
)

// SettingsStore persists runtime settings
type SettingsStore interface {
	ActiveProvider(ctx context.Context) (string, error)
	SetActiveProvider(ctx context.Context, provider string) error
	LifetimeTokens(ctx context.Context) (int64, error)
	ResetLifetimeTokens(ctx context.Context) error
}

// ProviderRegistry resolves the active provider and probes providers
type ProviderRegistry interface {
	ActiveProvider(ctx context.Context) string
	Status(ctx context.Context, provider string) llm.ProviderStatus
}

// SettingsService switches the LLM provider at runtime and exposes usage counters
type SettingsService struct {
	store    SettingsStore
	registry ProviderRegistry
}

// NewSettingsService creates a new settings service
func NewSettingsService(store SettingsStore, registry ProviderRegistry) *SettingsService {
	return &SettingsService{store: store, registry: registry}
}

// ProviderInfo describes the active provider and the choices
type ProviderInfo struct {
	Provider  string   `json:"provider"`
	Available []string `json:"available"`
}

// Provider returns the active provider
func (s *SettingsService) Provider(ctx context.Context) ProviderInfo {
	return ProviderInfo{Provider: s.registry.ActiveProvider(ctx), Available: llm.Providers()}
}

// SetProvider selects the provider used by new jobs. Running jobs keep theirs.
func (s *SettingsService) SetProvider(ctx context.Context, provider string) (ProviderInfo, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !llm.ValidProvider(provider) {
		return ProviderInfo{}, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, provider)
	}
	if err := s.store.SetActiveProvider(ctx, provider); err != nil {
		return ProviderInfo{}, fmt.Errorf("failed to save provider: %w", err)
	}
	return s.Provider(ctx), nil
}

// ProviderStatus probes provider, or the active one when provider is empty
func (s *SettingsService) ProviderStatus(ctx context.Context, provider string) (llm.ProviderStatus, error) {
	if provider == "" {
		provider = s.registry.ActiveProvider(ctx)
	}
	if !llm.ValidProvider(provider) {
		return llm.ProviderStatus{}, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, provider)
	}
	return s.registry.Status(ctx, provider), nil
}

// LifetimeTokens returns the tokens used by every job so far
func (s *SettingsService) LifetimeTokens(ctx context.Context) (int64, error) {
	return s.store.LifetimeTokens(ctx)
}

// ResetLifetimeTokens zeroes the lifetime counter
func (s *SettingsService) ResetLifetimeTokens(ctx context.Context) error {
	return s.store.ResetLifetimeTokens(ctx)
}
