package models

import "time"

// SyncRequest is what a client uploads: everything it changed locally plus
// the watermark of its last successful sync (nil for a first, full sync).
type SyncRequest struct {
	LastSyncTime *time.Time   `json:"last_sync_time"`
	Products     []Product    `json:"products" validate:"unique=ID,dive"`
	Categories   []Category   `json:"categories" validate:"unique=ID,dive"`
	Suppliers    []Supplier   `json:"suppliers" validate:"unique=ID,dive"`
	Sales        []Sale       `json:"sales" validate:"unique=ID,dive"`
	Purchases    []Purchase   `json:"purchases" validate:"unique=ID,dive"`
	Adjustments  []Adjustment `json:"adjustments" validate:"unique=ID,dive"`
	Activities   []Activity   `json:"activities" validate:"unique=ID,dive"`
	Settings     *Settings    `json:"settings"`
}

// SyncResponse is the change-set the server sends back.
type SyncResponse struct {
	ServerWatermark time.Time    `json:"server_watermark"`
	Products        []Product    `json:"products"`
	Categories      []Category   `json:"categories"`
	Suppliers       []Supplier   `json:"suppliers"`
	Sales           []Sale       `json:"sales"`
	Purchases       []Purchase   `json:"purchases"`
	Adjustments     []Adjustment `json:"adjustments"`
	Activities      []Activity   `json:"activities"`
	Settings        *Settings    `json:"settings"`
}
