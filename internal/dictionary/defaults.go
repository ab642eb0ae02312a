package dictionary

import "github.com/roach88/semfilter/internal/filterir"

// DefaultVersion is the version of the built-in dictionary.
const DefaultVersion = "filter_constants_v1"

var companyColumnPatterns = []string{"company", "company_name", "business_name", "ship_to_company"}

// DefaultDefinition returns the built-in dictionary definition.
func DefaultDefinition() Definition {
	return Definition{
		Version: DefaultVersion,
		States: map[string]string{
			"alabama":        "AL",
			"alaska":         "AK",
			"arizona":        "AZ",
			"arkansas":       "AR",
			"california":     "CA",
			"colorado":       "CO",
			"connecticut":    "CT",
			"delaware":       "DE",
			"florida":        "FL",
			"georgia":        "GA",
			"hawaii":         "HI",
			"idaho":          "ID",
			"illinois":       "IL",
			"indiana":        "IN",
			"iowa":           "IA",
			"kansas":         "KS",
			"kentucky":       "KY",
			"louisiana":      "LA",
			"maine":          "ME",
			"maryland":       "MD",
			"massachusetts":  "MA",
			"michigan":       "MI",
			"minnesota":      "MN",
			"mississippi":    "MS",
			"missouri":       "MO",
			"montana":        "MT",
			"nebraska":       "NE",
			"nevada":         "NV",
			"new hampshire":  "NH",
			"new jersey":     "NJ",
			"new mexico":     "NM",
			"new york":       "NY",
			"north carolina": "NC",
			"north dakota":   "ND",
			"ohio":           "OH",
			"oklahoma":       "OK",
			"oregon":         "OR",
			"pennsylvania":   "PA",
			"rhode island":   "RI",
			"south carolina": "SC",
			"south dakota":   "SD",
			"tennessee":      "TN",
			"texas":          "TX",
			"utah":           "UT",
			"vermont":        "VT",
			"virginia":       "VA",
			"washington":     "WA",
			"west virginia":  "WV",
			"wisconsin":      "WI",
			"wyoming":        "WY",
		},
		Regions: map[string][]string{
			"NORTHEAST":    {"NY", "MA", "CT", "PA", "NJ", "ME", "NH", "RI", "VT"},
			"NEW_ENGLAND":  {"ME", "NH", "VT", "MA", "RI", "CT"},
			"MID_ATLANTIC": {"NY", "NJ", "PA", "DE", "MD", "DC"},
			"SOUTHEAST":    {"VA", "WV", "NC", "SC", "GA", "FL", "KY", "TN", "AL", "MS", "AR", "LA"},
			"MIDWEST":      {"OH", "MI", "IN", "IL", "WI", "MN", "IA", "MO", "ND", "SD", "NE", "KS"},
			"SOUTHWEST":    {"TX", "OK", "NM", "AZ"},
			"WEST":         {"MT", "WY", "CO", "ID", "UT", "NV"},
			"WEST_COAST":   {"WA", "OR", "CA"},
			"PACIFIC":      {"HI", "AK"},
			"ALL_US": {
				"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
				"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
				"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
				"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
				"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
				"DC", "PR",
			},
		},
		RegionAliases: map[string]string{
			"northeast":      "NORTHEAST",
			"the northeast":  "NORTHEAST",
			"northeastern":   "NORTHEAST",
			"new england":    "NEW_ENGLAND",
			"mid atlantic":   "MID_ATLANTIC",
			"mid-atlantic":   "MID_ATLANTIC",
			"midatlantic":    "MID_ATLANTIC",
			"southeast":      "SOUTHEAST",
			"the southeast":  "SOUTHEAST",
			"southeastern":   "SOUTHEAST",
			"midwest":        "MIDWEST",
			"the midwest":    "MIDWEST",
			"midwestern":     "MIDWEST",
			"southwest":      "SOUTHWEST",
			"the southwest":  "SOUTHWEST",
			"southwestern":   "SOUTHWEST",
			"west":           "WEST",
			"the west":       "WEST",
			"western":        "WEST",
			"west coast":     "WEST_COAST",
			"the west coast": "WEST_COAST",
			"pacific":        "PACIFIC",
			"the pacific":    "PACIFIC",
			"all us":         "ALL_US",
			"all states":     "ALL_US",
			"nationwide":     "ALL_US",
		},
		Predicates: map[string]Predicate{
			"BUSINESS_RECIPIENT": {
				ColumnPatterns: companyColumnPatterns,
				Expansion:      filterir.OpIsNotBlank,
				Description:    "Rows where company/business name is populated",
			},
			"PERSONAL_RECIPIENT": {
				ColumnPatterns: companyColumnPatterns,
				Expansion:      filterir.OpIsBlank,
				Description:    "Rows where company/business name is empty (personal recipients)",
			},
		},
		FallbackSuggestions: []string{"SOUTHEAST", "SOUTHWEST", "MIDWEST"},
	}
}

// Default returns the built-in dictionary.
func Default() *Dictionary {
	d, err := New(DefaultDefinition())
	if err != nil {
		panic("dictionary: built-in definition is invalid: " + err.Error())
	}
	return d
}
