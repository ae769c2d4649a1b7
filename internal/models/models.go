package models

import "time"

type Branch struct {
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
}

type Service struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	Prefix    string `json:"prefix"`
	Active    bool   `json:"active"`
}

type Counter struct {
	CounterID string  `json:"counter_id"`
	BranchID  string  `json:"branch_id"`
	Name      string  `json:"name"`
	StaffID   *string `json:"staff_id,omitempty"`
	IsActive  bool    `json:"is_active"`
	IsPaused  bool    `json:"is_paused"`
}

type Announcement struct {
	AnnouncementID string    `json:"announcement_id"`
	BranchID       string    `json:"branch_id"`
	Message        string    `json:"message"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// BranchSetting is a per-branch key/value pair (display text, kiosk
// options and the like). The backend stores them opaquely.
type BranchSetting struct {
	BranchID string `json:"branch_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}
