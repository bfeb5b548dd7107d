package types

import "strings"

// Address is the delivery destination stored as jsonb on an order.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Comment    *string `json:"comment,omitempty"`
}

// Short renders a single-line form suitable for chat notifications.
func (a Address) Short() string {
	parts := make([]string, 0, 4)
	if a.Line1 != "" {
		parts = append(parts, a.Line1)
	}
	if a.Line2 != nil && *a.Line2 != "" {
		parts = append(parts, *a.Line2)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if a.PostalCode != "" {
		parts = append(parts, a.PostalCode)
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no address fields are populated.
func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.PostalCode == ""
}
