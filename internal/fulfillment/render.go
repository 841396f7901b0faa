package fulfillment

import (
	"fmt"
	"strings"

	"dining-concierge/internal/models"
)

// renderRecommendation builds the digest email for a request. At most
// renderLimit records appear in the body even when more were hydrated.
func renderRecommendation(req *models.FulfillmentRequest, records []models.RestaurantRecord, renderLimit int) (subject, body string) {
	if len(records) > renderLimit {
		records = records[:renderLimit]
	}

	subject = fmt.Sprintf("Your %s Restaurant Recommendations for %s", req.Cuisine, req.Location)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello!\n\nHere are your personalized restaurant recommendations:\n\n")
	fmt.Fprintf(&b, "Cuisine: %s\n", req.Cuisine)
	fmt.Fprintf(&b, "Location: %s\n", req.Location)
	fmt.Fprintf(&b, "Dining Time: %s\n", req.DiningTime)
	fmt.Fprintf(&b, "Party Size: %s\n\n", req.NumberOfPeople)
	fmt.Fprintf(&b, "Restaurant Recommendations:\n")

	for i, rec := range records {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, rec.Name)
		fmt.Fprintf(&b, "   Address: %s\n", rec.Address)
		fmt.Fprintf(&b, "   Rating: %.1f/5 (%d reviews)\n", rec.Rating, rec.ReviewCount)
		fmt.Fprintf(&b, "   Phone: %s\n", rec.Phone)
	}

	fmt.Fprintf(&b, "\nEnjoy your meal!\n\nBest regards,\nYour Dining Concierge\n")

	return subject, b.String()
}

// renderNoResults builds the notice sent when the catalog has no matches.
// Absence of matches is a final answer, not a transient condition.
func renderNoResults(req *models.FulfillmentRequest) (subject, body string) {
	subject = "Restaurant Recommendations - No Results Found"

	var b strings.Builder
	fmt.Fprintf(&b, "Hello!\n\n")
	fmt.Fprintf(&b, "I apologize, but I couldn't find any %s restaurants in %s at this time.\n\n", req.Cuisine, req.Location)
	fmt.Fprintf(&b, "This might be because:\n")
	fmt.Fprintf(&b, "- The cuisine type might not be available in that area\n")
	fmt.Fprintf(&b, "- Our database might need updating\n")
	fmt.Fprintf(&b, "- There might be a temporary issue with our search system\n\n")
	fmt.Fprintf(&b, "Please try again with a different cuisine type or location, or contact our support team.\n\n")
	fmt.Fprintf(&b, "Best regards,\nYour Dining Concierge\n")

	return subject, b.String()
}
