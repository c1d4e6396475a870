package domain

import "context"

// Stats is the operations overview: live network and session counts next
// to the money that is outstanding or already in.
type Stats struct {
	ConnectedDevices   int64 `json:"connected_devices"`
	ActivePPPoEUsers   int64 `json:"active_pppoe_users"`
	ActiveHotspotUsers int64 `json:"active_hotspot_users"`
	PendingPayments    int64 `json:"pending_payments"`
	CriticalAlarms     int64 `json:"critical_alarms"`
	TotalRevenue       int64 `json:"total_revenue"`
}

type Service interface {
	// Stats aggregates the overview counters. Results are cached for a
	// short window; callers may see numbers a few seconds old.
	Stats(ctx context.Context) (Stats, error)
}
