/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"net/http"
)

// DashboardStats returns the headline figures for the dashboard.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/stats"})
	if err != nil {
		return nil, err
	}
	stats, err := mapOne(raw, toDashboardStats)
	if err != nil {
		return nil, decodeErr("/dashboard/stats", err)
	}
	if stats == nil {
		stats = &DashboardStats{}
	}
	return stats, nil
}
