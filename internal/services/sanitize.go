package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Free-text fields such as recipe descriptions, order comments and
// surcharge names come straight from dispatcher input and end up on
// printed delivery notes, so any markup is stripped on write.
var freeTextPolicy = bluemonday.StrictPolicy()

func sanitizeText(v string) string {
	return strings.TrimSpace(freeTextPolicy.Sanitize(v))
}
