// internal/models/restaurant.go
package models

// RestaurantRecord is a catalog entity. Read-only from this service's
// perspective; the catalog store owns it.
type RestaurantRecord struct {
	BusinessID  string  `json:"businessId" db:"business_id"`
	Name        string  `json:"name" db:"name"`
	Address     string  `json:"address" db:"address"`
	Phone       string  `json:"phone" db:"phone"`
	Cuisine     string  `json:"cuisine" db:"cuisine"`
	Rating      float64 `json:"rating" db:"rating"`
	ReviewCount int     `json:"reviewCount" db:"review_count"`
}
