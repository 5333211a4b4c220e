// internal/domain/delivery/entity.go
package delivery

import (
	"strings"
	"time"
)

// Delivery is one record from the Zoho Deliveries module. Deliveries
// carry no lead reference, so they are matched to leads by street
// address and zip code.
type Delivery struct {
	ID            string     `json:"id"`
	StreetAddress *string    `json:"street_address,omitempty"`
	ZipCode       *string    `json:"zip_code,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
}

// AddressKey builds the normalized match key for an address/zip pair:
// lower-cased, inner whitespace collapsed. Empty when either part is
// missing, and an empty key never matches anything.
func AddressKey(street, zip *string) string {
	if street == nil || zip == nil {
		return ""
	}
	s := strings.Join(strings.Fields(strings.ToLower(*street)), " ")
	z := strings.TrimSpace(strings.ToLower(*zip))
	if s == "" || z == "" {
		return ""
	}
	return s + "|" + z
}

// Key returns the delivery's own address key.
func (d Delivery) Key() string {
	return AddressKey(d.StreetAddress, d.ZipCode)
}
