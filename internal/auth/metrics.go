// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_audit_write_failures_total",
		Help: "Total number of audit entries that could not be persisted",
	})

	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_sessions_swept_total",
		Help: "Total number of expired sessions marked inactive by sweeps",
	})
)
