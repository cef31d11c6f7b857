package model

// Screening is one scheduled showing as delivered by the upstream festival
// API, normalized into display-ready fields. All times are festival-local
// wall-clock values; the whole system runs in a single timezone.
type Screening struct {
	// ID is the stable screening identifier assigned upstream. Empty when the
	// upstream record carried none; such screenings cannot be favorite
	// migration targets.
	ID string `json:"id,omitempty"`

	// Day is the ISO calendar day ("2006-01-02").
	Day string `json:"day"`
	// Date is the upstream day label (e.g. "Samedi 24 janvier 2026"). Legacy
	// favorite keys were built from this label, not from Day.
	Date string `json:"date"`

	// StartTime / EndTime are "HH:MM".
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	Venue string `json:"venue"`
	Title string `json:"title,omitempty"`

	Section  string `json:"section,omitempty"`
	Director string `json:"director,omitempty"`
	URL      string `json:"url,omitempty"`
}
