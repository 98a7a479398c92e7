// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "time"

// Timestamps is the created/updated pair shared by mutable entities.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps returns both timestamps set to the current time in UTC.
func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Touch refreshes the update timestamp.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now().UTC()
}
