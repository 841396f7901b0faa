package dialog

import (
	"fmt"
	"strings"

	"dining-concierge/internal/models"
)

const (
	greetingReply = "Hi there! I'm your dining concierge. I can help you find great restaurants in Manhattan. What kind of cuisine are you in the mood for?"

	thankYouReply = "You're welcome! I'm here to help whenever you need restaurant recommendations. Have a great meal!"

	unknownReply = "I'm still learning! Could you please tell me what kind of restaurant you're looking for?"

	transientReply = "Sorry, I couldn't submit your request just now. Your answers are saved, please try again in a moment."

	badEmailReply = "That email address doesn't look right. What's your email address so I can send you the recommendations?"
)

var elicitPrompts = map[models.SlotName]string{
	models.SlotLocation:       "Where would you like to dine? (e.g., Manhattan, Midtown, Upper East Side)",
	models.SlotCuisine:        "What type of cuisine are you in the mood for? (e.g., Italian, Chinese, Mexican, Japanese, Indian)",
	models.SlotDiningTime:     "What time would you like to dine? (e.g., 7:00 PM, 8:30 PM)",
	models.SlotNumberOfPeople: "How many people will be dining? (e.g., 2, 4, 6)",
	models.SlotEmail:          "What's your email address so I can send you the recommendations?",
}

func elicitPrompt(slot models.SlotName) string {
	if msg, ok := elicitPrompts[slot]; ok {
		return msg
	}
	return fmt.Sprintf("Please provide %s.", strings.ToLower(string(slot)))
}

func confirmationReply(slots models.SlotSet) string {
	return fmt.Sprintf(
		"Perfect! I've received your request for %s restaurants in %s for %s people at %s. I'll send you personalized recommendations via email shortly!",
		slots.Get(models.SlotCuisine),
		slots.Get(models.SlotLocation),
		slots.Get(models.SlotNumberOfPeople),
		slots.Get(models.SlotDiningTime),
	)
}
