// Package guard classifies inbound storefront chat messages as spam, off-topic or clean.
//
// Every function here is pure: the same text always yields the same Verdict, and nothing is
// recorded. Callers decide what a verdict means for the session.
package guard

// Kind tags a Verdict.
type Kind string

const (
	KindClean    Kind = "clean"
	KindSpam     Kind = "spam"
	KindOffTopic Kind = "off_topic"
)

// SpamReason names the heuristic that flagged a message as spam.
type SpamReason string

const (
	SpamTooShort          SpamReason = "too_short"
	SpamRepeatedChars     SpamReason = "repeated_chars"
	SpamShouting          SpamReason = "shouting"
	SpamExternalLink      SpamReason = "external_link"
	SpamPhoneSolicitation SpamReason = "phone_solicitation"
	SpamEmojiFlood        SpamReason = "emoji_flood"
	SpamPhrase            SpamReason = "spam_phrase"
)

// Category is the subject area of an off-topic message.
type Category string

const (
	CategorySports               Category = "sports"
	CategoryEntertainment        Category = "entertainment"
	CategoryPolitics             Category = "politics"
	CategoryNews                 Category = "news"
	CategoryGeneralKnowledge     Category = "general_knowledge"
	CategoryHomework             Category = "homework"
	CategoryMedical              Category = "medical"
	CategoryLegal                Category = "legal"
	CategoryPersonal             Category = "personal"
	CategoryCoding               Category = "coding"
	CategoryEntertainmentRequest Category = "entertainment_request"
	CategoryWeather              Category = "weather"
	CategoryCompetitor           Category = "competitor"
	CategoryPrivacyViolation     Category = "privacy_violation"
)

// Verdict is the tagged result of Classify: exactly one of Clean, Spam(reason) or OffTopic(category).
type Verdict struct {
	Kind       Kind       `json:"kind"`
	SpamReason SpamReason `json:"spam_reason,omitempty"`
	Category   Category   `json:"category,omitempty"`
}

// Clean is the verdict for an acceptable shopping message.
func Clean() Verdict { return Verdict{Kind: KindClean} }

// Spam builds a spam verdict.
func Spam(reason SpamReason) Verdict { return Verdict{Kind: KindSpam, SpamReason: reason} }

// OffTopic builds an off-topic verdict.
func OffTopic(category Category) Verdict { return Verdict{Kind: KindOffTopic, Category: category} }

func (v Verdict) IsClean() bool    { return v.Kind == KindClean }
func (v Verdict) IsSpam() bool     { return v.Kind == KindSpam }
func (v Verdict) IsOffTopic() bool { return v.Kind == KindOffTopic }

func (v Verdict) String() string {
	switch v.Kind {
	case KindSpam:
		return "spam(" + string(v.SpamReason) + ")"
	case KindOffTopic:
		return "off_topic(" + string(v.Category) + ")"
	default:
		return string(KindClean)
	}
}

// Classify runs the spam heuristics, then the off-topic heuristics.
func Classify(message string) Verdict {
	if reason, ok := CheckSpam(message); ok {
		return Spam(reason)
	}
	if category, ok := CheckOffTopic(message); ok {
		return OffTopic(category)
	}
	return Clean()
}
