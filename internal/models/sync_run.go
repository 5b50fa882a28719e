package models

import "time"

// SyncRunModel records one historical-sync pass over the source channels.
type SyncRunModel struct {
	Base
	Trigger        string     `json:"trigger"` // "cron" | "manual"
	PluginsAdded   int        `json:"plugins_added"`
	IconPacksAdded int        `json:"icon_packs_added"`
	Skipped        int        `json:"skipped"`
	Errors         int        `json:"errors"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Message        string     `json:"message,omitempty"`
}

func (SyncRunModel) TableName() string { return "sync_runs" }
