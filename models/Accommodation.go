package models

// Accommodation describes one of the three bookable units. The set is fixed;
// there is no CRUD for it.
type Accommodation struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	MaxGuests int    `json:"maxGuests"`

	// MinNightsPeak applies when check-in falls inside the peak season
	// (October through May). Zero means no seasonal minimum.
	MinNightsPeak int `json:"minNightsPeak"`
}

var Accommodations = map[string]Accommodation{
	"dome-pinot": {
		Slug:      "dome-pinot",
		Name:      "Dome Pinot",
		MaxGuests: 2,
	},
	"dome-rose": {
		Slug:      "dome-rose",
		Name:      "Dome Rosé",
		MaxGuests: 2,
	},
	"cottage": {
		Slug:          "cottage",
		Name:          "Lakeside Cottage",
		MaxGuests:     8,
		MinNightsPeak: 2,
	},
}

// IsPeakMonth covers the busy half of the year, which wraps the calendar
// boundary: October through December and January through May.
func IsPeakMonth(month int) bool {
	return month >= 10 || month <= 5
}

func KnownAccommodation(slug string) bool {
	_, ok := Accommodations[slug]
	return ok
}
