package entities

import "time"

// InstallReceipt records a completed plugin installation so that later
// runs can detect reinstalls, report status, and uninstall cleanly.
type InstallReceipt struct {
	Plugin      string
	Version     string
	Arch        string
	Method      string // artifact kind that performed the install
	Files       []string
	InstalledAt time.Time
}
