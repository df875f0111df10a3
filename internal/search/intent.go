package search

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Intent is the detected purpose behind a query.
type Intent string

const (
	IntentErrorResolution Intent = "error_resolution"
	IntentHowTo           Intent = "how_to"
	IntentTroubleshooting Intent = "troubleshooting"
	IntentGeneralInfo     Intent = "general_info"
)

// Classification priority: error patterns beat how-to patterns beat
// troubleshooting patterns; anything else is general info.
var (
	errorPattern = regexp.MustCompile(
		`\b(error|abend|s0c[0-9ab]|s[0-9][0-9a-f]{2}|s[b-f]37|u\d{4}|sqlcode|sql error|ief\d+i|` +
			`fail(s|ed|ure)?|abort(ed)?|exception|crash(ed)?|status \d+)\b`)
	howToPattern = regexp.MustCompile(
		`\b(how (to|do|can|should)|setup|set up|configure|install|create|define|allocate|submit)\b`)
	troubleshootPattern = regexp.MustCompile(
		`\b(why|debug|diagnos(e|is|tic)|investigate|troubleshoot|slow|hang(s|ing)?|stuck|loop(s|ing)?)\b`)
)

// IntentClassifier classifies normalized queries by regex patterns.
// Classifications are cached since the same queries recur heavily.
type IntentClassifier struct {
	cache *lru.Cache[string, Intent]
}

// NewIntentClassifier creates a classifier with a bounded result cache.
func NewIntentClassifier(cacheSize int) *IntentClassifier {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, _ := lru.New[string, Intent](cacheSize)
	return &IntentClassifier{cache: cache}
}

// Classify returns the intent of a normalized query.
func (c *IntentClassifier) Classify(query string) Intent {
	if query == "" {
		return IntentGeneralInfo
	}

	if cached, ok := c.cache.Get(query); ok {
		return cached
	}

	intent := classify(query)
	c.cache.Add(query, intent)
	return intent
}

func classify(query string) Intent {
	switch {
	case errorPattern.MatchString(query):
		return IntentErrorResolution
	case howToPattern.MatchString(query):
		return IntentHowTo
	case troubleshootPattern.MatchString(query):
		return IntentTroubleshooting
	default:
		return IntentGeneralInfo
	}
}
