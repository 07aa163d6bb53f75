package importer

import (
	"regexp"
	"strings"
)

const houseBrand = "Home Source"

// knownBrands are manufacturer names recognized at the start of a cleaned
// product name. Anything else falls back to the house brand.
var knownBrands = []string{
	"Ashley",
	"Coaster",
	"Homelegance",
	"Acme",
	"Furniture of America",
	"Crown Mark",
	"Glory Furniture",
	"Poundex",
	"Simmons",
	"Serta",
}

// badgeRules run in fixed priority order; the first raw-name match wins.
var badgeRules = []struct {
	pattern *regexp.Regexp
	badge   string
}{
	{regexp.MustCompile(`(?i)new\s+arrival`), "New Arrival"},
	{regexp.MustCompile(`(?i)on\s+sale|\bsale\b`), "On Sale"},
	{regexp.MustCompile(`(?i)great\s+value`), "Great Value"},
	{regexp.MustCompile(`(?i)coming\s+soon`), "Coming Soon"},
	{regexp.MustCompile(`(?i)best\s+seller`), "Best Seller"},
	{regexp.MustCompile(`(?i)\blimited\b`), "Limited Edition"},
}

var (
	calloutPattern   = regexp.MustCompile(`\*\*[^*]*\*\*`)
	etaPattern       = regexp.MustCompile(`(?i)\(?\s*\bETA\b[^),*]*\)?`)
	nLeftPattern     = regexp.MustCompile(`(?i)\b(?:only\s+)?\d+\s+left\b!*`)
	asterisksPattern = regexp.MustCompile(`\*+`)
	spacesPattern    = regexp.MustCompile(`\s+`)
	nonAlnumPattern  = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanName strips the supplier's promotional markup out of a raw product
// name: **callouts**, ETA annotations, "N LEFT" urgency markers and stray
// asterisks. Idempotent.
func CleanName(name string) string {
	name = calloutPattern.ReplaceAllString(name, " ")
	name = etaPattern.ReplaceAllString(name, " ")
	name = nLeftPattern.ReplaceAllString(name, " ")
	name = asterisksPattern.ReplaceAllString(name, " ")
	name = spacesPattern.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Slugify lowercases, collapses every non-alphanumeric run into a hyphen,
// trims, and caps the result at 80 characters.
func Slugify(name string) string {
	slug := nonAlnumPattern.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// ProductSlug derives the globally unique slug: cleaned name + store id.
// Uniqueness holds by construction because the store id is embedded.
func ProductSlug(rawName, storeID string) string {
	return Slugify(CleanName(rawName)) + "-" + storeID
}

// InferCategory guesses a real category for "New Arrivals" listings from
// name keywords. Never returns "New Arrivals".
func InferCategory(cleanName string) string {
	name := strings.ToLower(cleanName)
	switch {
	case strings.Contains(name, "sofa") || strings.Contains(name, "sectional"):
		return "Living Room"
	case strings.Contains(name, "bed") || strings.Contains(name, "mattress"):
		return "Bedroom"
	case strings.Contains(name, "dining") || strings.Contains(name, "barstool"):
		return "Dining Room"
	case strings.Contains(name, "desk") || strings.Contains(name, "office"):
		return "Office"
	default:
		return "Accessories"
	}
}

// InferBrand returns the manufacturer when the cleaned name starts with a
// known one, else the house brand.
func InferBrand(cleanName string) string {
	lower := strings.ToLower(cleanName)
	for _, brand := range knownBrands {
		if strings.HasPrefix(lower, strings.ToLower(brand)) {
			return brand
		}
	}
	return houseBrand
}

// ExtractBadge maps promotional keywords in the raw name to a storefront
// badge, first match wins in fixed priority order. Nil when nothing matches.
func ExtractBadge(rawName string) *string {
	for _, rule := range badgeRules {
		if rule.pattern.MatchString(rawName) {
			badge := rule.badge
			return &badge
		}
	}
	return nil
}

// FallbackDescription generates the stored description when the detail page
// yielded none.
func FallbackDescription(cleanName, brand string) string {
	return cleanName + " by " + brand + ". Premium quality furniture for your home."
}
