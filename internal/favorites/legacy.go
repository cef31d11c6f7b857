package favorites

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"festcal/internal/model"
)

const legacySep = "|"

// LegacyKey is the pre-migration favorite identifier: a composite of the
// screening's day label, start time, venue and lower-cased title.
type LegacyKey struct {
	Date      string
	StartTime string
	Venue     string
	Title     string // already lower-cased
}

func (k LegacyKey) String() string {
	return strings.Join([]string{k.Date, k.StartTime, k.Venue, k.Title}, legacySep)
}

// IsLegacyID reports whether id uses the old composite-key format. The test
// is a plain substring check for the separator; an opaque upstream ID that
// happens to contain "|" would be misclassified.
func IsLegacyID(id string) bool {
	return strings.Contains(id, legacySep)
}

// ParseLegacyKey splits a legacy identifier into its four fields. Anything
// that does not split into exactly four fields is rejected.
func ParseLegacyKey(id string) (LegacyKey, bool) {
	parts := strings.Split(id, legacySep)
	if len(parts) != 4 {
		return LegacyKey{}, false
	}
	return LegacyKey{
		Date:      parts[0],
		StartTime: parts[1],
		Venue:     parts[2],
		Title:     parts[3],
	}, true
}

// LegacyKeyFor rebuilds the legacy identifier a screening would have been
// stored under. A missing title contributes an empty field.
func LegacyKeyFor(s model.Screening) LegacyKey {
	return LegacyKey{
		Date:      s.Date,
		StartTime: s.StartTime,
		Venue:     s.Venue,
		Title:     lowerTitle(s.Title),
	}
}

// lowerTitle applies full Unicode lower-casing, matching how legacy keys
// were produced.
func lowerTitle(title string) string {
	return cases.Lower(language.Und).String(title)
}
