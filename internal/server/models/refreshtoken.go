package models

import "time"

// RefreshToken is a server-stored long-lived token, rotated on every use.
// Device metadata rides along for bookkeeping only.
type RefreshToken struct {
	Token          string
	UserID         string
	DeviceID       string
	DeviceName     string
	DevicePlatform string
	Expires        time.Time
	CreatedAt      time.Time
}
