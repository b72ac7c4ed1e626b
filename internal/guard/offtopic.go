package guard

import (
	"regexp"
	"strings"
)

type categoryRule struct {
	category Category
	match    *regexp.Regexp
	unless   *regexp.Regexp // the rule is skipped when this also matches
}

var (
	shoppingPattern = regexp.MustCompile(`(?i)\b(?:product|item|phone|laptop|clothes|shoe|bag|watch|camera|speaker|headphone|charger|accessory|electronics|fashion|food|drink|furniture|appliance|gadget|buy|purchase|order|price|cost|available|sell|selling|need|want|recommend|suggest|best|cheapest|affordable|budget|deliver|delivery|shipping|ship|payment|pay|cash|transfer|return|refund|warranty|guarantee|policy|open|close|hours|location|address|contact|whatsapp|store|shop|business|merchant)\b|how much|in stock|show me|looking for`)

	obviousOffTopicPattern = regexp.MustCompile(`(?i)football|soccer|arsenal|chelsea|politics|president|movie|celebrity|joke|poem`)

	questionPattern       = regexp.MustCompile(`(?i)^(?:what|when|where|who|why|how|is|are|do|does|did|can|could|would|should|will)\b`)
	productContextPattern = regexp.MustCompile(`(?i)\b(?:this|that|these|those|it)\b`)
	greetingPrefixPattern = regexp.MustCompile(`(?i)^(?:hi|hello|hey|good morning|good afternoon|good evening)`)
	availabilityPattern   = regexp.MustCompile(`(?i)^(?:do you have|does your store have|you got|you get)\b`)
	trailingQuestionWord  = regexp.MustCompile(`(?i)\s+(?:what|who|when|where|why|how)\?*$`)
	pureMathPattern       = regexp.MustCompile(`^\s*\d+\s*[-+*/×÷]\s*\d+\s*=?\s*$`)
	whatIsPattern         = regexp.MustCompile(`(?i)^what is\b`)
	whoIsPattern          = regexp.MustCompile(`(?i)^who (?:is|was|are|invented|created|made|discovered)\b`)
)

// categoryRules are evaluated in order; the first match wins.
var categoryRules = []categoryRule{
	{CategorySports, regexp.MustCompile(`(?i)\b(?:football|soccer|arsenal|chelsea|manchester|liverpool|barcelona|champions league|premier league|la liga|match|goal|player|team|score)\b`), nil},
	{CategoryEntertainment, regexp.MustCompile(`(?i)\b(?:movie|film|actor|actress|celebrity|song|music|album|concert|show|netflix|tv series)\b`), nil},
	{CategoryPolitics, regexp.MustCompile(`(?i)\b(?:president|governor|election|vote|party|politics|minister|senator|buhari|tinubu|atiku)\b`), nil},
	{CategoryNews, regexp.MustCompile(`(?i)\b(?:news|headline|breaking|happened today|what's happening|current events)\b`), nil},
	{CategoryGeneralKnowledge,
		regexp.MustCompile(`(?i)\b(?:capital of|president of|who is|when was|history of|explain|define|what does.*mean)\b`),
		regexp.MustCompile(`(?i)\b(?:product|item|this|that)\b`)},
	{CategoryGeneralKnowledge, regexp.MustCompile(`(?i)\b(?:bill gates?|elon musk|jeff bezos|mark zuckerberg|warren buffett?|steve jobs|how rich is|net worth of|richest person)\b`), nil},
	{CategoryHomework,
		regexp.MustCompile(`(?i)\d+\s*(?:times|multiplied by|divided by|\+|-|\*|/|plus|minus)\s*\d+|\bcalculate\b|\bsolve.*equation\b`),
		regexp.MustCompile(`(?i)\b(?:price|cost|total|how much|naira)\b|₦`)},
	{CategoryMedical, regexp.MustCompile(`(?i)\b(?:medical advice|doctor|disease|sick|symptom|cure|treatment|medication|prescription)\b`), nil},
	{CategoryLegal, regexp.MustCompile(`(?i)\b(?:legal advice|lawyer|court|sue|lawsuit|rights|contract)\b`), nil},
	{CategoryPersonal, regexp.MustCompile(`(?i)\b(?:relationship|dating|boyfriend|girlfriend|marriage|divorce|breakup)\b`), nil},
	{CategoryHomework, regexp.MustCompile(`(?i)\b(?:homework|assignment|solve this|equation|formula|essay|write about|research)\b`), nil},
	{CategoryCoding, regexp.MustCompile(`(?i)\b(?:write code|python|javascript|programming|debug|error in code|algorithm)\b`), nil},
	{CategoryEntertainmentRequest, regexp.MustCompile(`(?i)\b(?:tell.*joke|make.*laugh|funny|story|poem|riddle|sing)\b`), nil},
	{CategoryWeather,
		regexp.MustCompile(`(?i)\b(?:weather|temperature|rain|sunny|forecast)\b`),
		regexp.MustCompile(`(?i)\b(?:deliver|delivery|ship|shipping)\b`)},
	{CategoryCompetitor, regexp.MustCompile(`(?i)\b(?:jumia|konga|amazon|shopify|aliexpress|jiji|other store|another shop)\b`), nil},
	{CategoryPrivacyViolation, regexp.MustCompile(`(?i)\b(?:owner.*salary|how much.*owner.*make|profit margin|owner.*phone|owner.*address|owner.*bank)\b`), nil},
}

// CheckOffTopic reports whether message is outside the shopping domain, and its category.
func CheckOffTopic(message string) (Category, bool) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	shopping := shoppingPattern.MatchString(lower)
	if shopping && !obviousOffTopicPattern.MatchString(lower) {
		return "", false
	}

	for _, rule := range categoryRules {
		if !rule.match.MatchString(lower) {
			continue
		}
		if rule.unless != nil && rule.unless.MatchString(lower) {
			continue
		}
		return rule.category, true
	}

	productContext := productContextPattern.MatchString(lower)

	if questionPattern.MatchString(lower) &&
		!shopping && !productContext &&
		!greetingPrefixPattern.MatchString(lower) &&
		!availabilityPattern.MatchString(lower) {
		return CategoryGeneralKnowledge, true
	}
	if !shopping && trailingQuestionWord.MatchString(lower) {
		return CategoryGeneralKnowledge, true
	}
	if pureMathPattern.MatchString(trimmed) {
		return CategoryHomework, true
	}
	if !shopping && !productContext && whatIsPattern.MatchString(lower) {
		return CategoryGeneralKnowledge, true
	}
	if !shopping && !productContext && whoIsPattern.MatchString(lower) {
		return CategoryGeneralKnowledge, true
	}
	return "", false
}
