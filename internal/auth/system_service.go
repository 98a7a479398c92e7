// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// SettingsRepository manages the system configuration key-value store.
type SettingsRepository interface {
	// Get returns the value for a key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set creates or replaces a key. An empty description keeps the
	// existing one.
	Set(ctx context.Context, key, value, description string) error

	// All returns every key with its value.
	All(ctx context.Context) (map[string]string, error)
}

// SystemService handles system configuration and maintenance.
type SystemService struct {
	settings SettingsRepository
	sessions SessionRepository
	audit    AuditRepository
	logger   *slog.Logger
}

// NewSystemService creates a SystemService.
func NewSystemService(settings SettingsRepository, sessions SessionRepository, audit AuditRepository) (*SystemService, error) {
	if settings == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("settings repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("sessions repository is required")
	}
	if audit == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("audit repository is required")
	}
	return &SystemService{
		settings: settings,
		sessions: sessions,
		audit:    audit,
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the service logger. Intended for wiring at startup.
func (s *SystemService) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetSetting returns the value of a configuration key or ErrNotFound.
func (s *SystemService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.settings.Get(ctx, key)
}

// Settings returns all configuration keys and values.
func (s *SystemService) Settings(ctx context.Context) (map[string]string, error) {
	return s.settings.All(ctx)
}

// SetSetting upserts a configuration key and audits the change. The value
// itself is not written to the audit detail.
func (s *SystemService) SetSetting(ctx context.Context, key, value, description string) error {
	if key == "" {
		return oops.Code("CONFIG_INVALID_KEY").Wrapf(ErrValidation, "setting key cannot be empty")
	}

	if err := s.settings.Set(ctx, key, value, description); err != nil {
		return oops.Code("CONFIG_SET_FAILED").With("key", key).Wrap(err)
	}

	entry := NewAuditEntry(ActionConfigUpdated).
		WithResource(ResourceConfig, key).
		WithDetail(fmt.Sprintf("setting %s updated", key))
	s.recordBestEffort(ctx, entry)
	return nil
}

// SweepExpiredSessions marks every expired-but-active session inactive
// and returns the count. A sweep that changed nothing is not audited.
func (s *SystemService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	count, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	if count == 0 {
		return 0, nil
	}

	sessionsSwept.Add(float64(count))
	entry := NewAuditEntry(ActionSessionsSwept).
		WithDetail(fmt.Sprintf("invalidated %d expired sessions", count))
	s.recordBestEffort(ctx, entry)
	return count, nil
}

// recordBestEffort writes an audit entry after the primary mutation has
// already committed. Failures are logged and counted, never masked onto
// the caller's result.
func (s *SystemService) recordBestEffort(ctx context.Context, entry *AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		auditWriteFailures.Inc()
		s.logger.Error("audit write failed",
			"action", entry.Action,
			"error", err)
	}
}
