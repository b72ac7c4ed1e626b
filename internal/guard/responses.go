package guard

import (
	"fmt"
	"strconv"
)

// SpamResponse is returned for every spam verdict.
const SpamResponse = "🚫 Message blocked. Please send a valid shopping question."

// Rate-limit reasons understood by RateLimitResponse.
const (
	ReasonTooFast      = "too_fast"
	ReasonSessionLimit = "session_limit"
	ReasonBlocked      = "blocked"
)

var offTopicHints = map[Category]string{
	CategorySports:           "⚽ For sports updates, try Google or sports apps!",
	CategoryEntertainment:    "🎬 For entertainment info, try IMDb or entertainment sites!",
	CategoryPolitics:         "🗳️ For political news, check news websites!",
	CategoryNews:             "📰 For news updates, check news apps or websites!",
	CategoryGeneralKnowledge: "🔍 For general questions, try Google or Wikipedia!",
	CategoryMedical:          "⚕️ For medical advice, please consult a licensed doctor!",
	CategoryLegal:            "⚖️ For legal advice, please consult a licensed lawyer!",
	CategoryHomework:         "📚 For homework help, try educational websites!",
	CategoryCoding:           "💻 For coding help, try Stack Overflow!",
	CategoryWeather:          "🌤️ For weather, check weather apps!",
	CategoryPrivacyViolation: "🔒 I can't share private business information.",
}

// OffTopicResponse explains what the assistant can help with, tailored to the category.
func OffTopicResponse(category Category, businessName, whatsapp string) string {
	base := fmt.Sprintf("I'm %s's shopping assistant! 🛍️\n\nI can only help with:\n"+
		"• Product prices and availability\n• Delivery and payment info\n• Store policies\n• Placing orders",
		businessName)

	contact := "\n\nWhat product are you looking for?"
	if whatsapp != "" {
		contact = "\n\n📱 For other questions, WhatsApp us: " + whatsapp
	}

	if category == CategoryCompetitor {
		return base + "\n\nI can only help with products from " + businessName + "!" + contact
	}
	if hint, ok := offTopicHints[category]; ok {
		return base + "\n\n" + hint + contact
	}
	return base + contact
}

// RateLimitResponse renders the message shown when the limiter rejects a message.
func RateLimitResponse(reason, businessName, whatsapp string, waitSeconds int) string {
	contact := whatsapp
	if contact == "" {
		contact = "Contact us"
	}

	switch reason {
	case ReasonTooFast:
		return "⏱️ Please slow down! Wait " + strconv.Itoa(waitSeconds) +
			" seconds before your next message.\n\nTake your time to browse our products. 😊"
	case ReasonSessionLimit:
		return "📱 You've reached the chat limit for this session!\n\n**Ready to order?**\nWhatsApp us directly: " +
			contact + "\n\n💡 Our team will help you complete your purchase!"
	case ReasonBlocked:
		return "🚫 Too many off-topic messages detected.\n\nThis chat is for shopping at " + businessName +
			" only.\n\n📱 For assistance, WhatsApp: " + contact
	default:
		return "Please try again in a moment."
	}
}
