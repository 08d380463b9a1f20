// Package universe manages the tradable securities reference data.
package universe

import "time"

// Security is a tradable instrument known to the dashboard.
type Security struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
