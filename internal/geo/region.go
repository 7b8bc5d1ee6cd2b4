package geo

// NYC is the sanity box for stored coordinates. Anything outside it is a bad
// geocode (an upstate town sharing a street name, a different "Brooklyn").
var NYC = Box{MinLat: 40.4, MaxLat: 41.0, MinLon: -74.3, MaxLon: -73.6}

// Boroughs lists the five borough names in their canonical spelling.
var Boroughs = []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island"}

// BoroughCentroids is the last-resort geocoding table.
var BoroughCentroids = map[string]Point{
	"Manhattan":     {Lat: 40.7831, Lon: -73.9712},
	"Brooklyn":      {Lat: 40.6782, Lon: -73.9442},
	"Queens":        {Lat: 40.7282, Lon: -73.7949},
	"Bronx":         {Lat: 40.8448, Lon: -73.8648},
	"Staten Island": {Lat: 40.5795, Lon: -74.1502},
}

// CanonicalBorough maps loose spellings ("the bronx", "STATEN ISLAND") to the
// canonical name. The second result is false when s is not a borough.
func CanonicalBorough(s string) (string, bool) {
	switch normalizeBorough(s) {
	case "manhattan", "new york", "new york county":
		return "Manhattan", true
	case "brooklyn", "kings", "kings county":
		return "Brooklyn", true
	case "queens", "queens county":
		return "Queens", true
	case "bronx", "the bronx", "bronx county":
		return "Bronx", true
	case "staten island", "richmond", "richmond county":
		return "Staten Island", true
	}
	return "", false
}

func normalizeBorough(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			space = len(out) > 0
		default:
			if space {
				out = append(out, ' ')
				space = false
			}
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out = append(out, r)
		}
	}
	return string(out)
}
