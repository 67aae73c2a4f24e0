package matching

import (
	"strings"

	"agrotrade/models"
)

// cropCategories groups crop tags into trade categories. Two crops in the
// same category are "adjacent".
var cropCategories = map[string]string{
	"CASHEWS":   "NUTS",
	"ALMONDS":   "NUTS",
	"PEANUTS":   "NUTS",
	"SHEA":      "NUTS",
	"MACADAMIA": "NUTS",

	"COCOA":  "BEVERAGE",
	"COFFEE": "BEVERAGE",
	"TEA":    "BEVERAGE",

	"MAIZE":   "GRAINS",
	"WHEAT":   "GRAINS",
	"RICE":    "GRAINS",
	"SORGHUM": "GRAINS",
	"MILLET":  "GRAINS",

	"SOYBEANS":  "OILSEEDS",
	"SESAME":    "OILSEEDS",
	"SUNFLOWER": "OILSEEDS",
	"PALM_OIL":  "OILSEEDS",

	"GINGER":   "SPICES",
	"HIBISCUS": "SPICES",
	"PEPPER":   "SPICES",
	"VANILLA":  "SPICES",

	"COTTON": "FIBRE",
}

// CategoryOf returns the trade category of a crop, or "" if unknown.
func CategoryOf(crop string) string {
	return cropCategories[models.NormalizeTag(crop)]
}

// countryRegions maps ISO 3166 alpha-2 codes to coarse macro-regions.
var countryRegions = map[string]string{
	"CI": "WEST_AFRICA", "GH": "WEST_AFRICA", "NG": "WEST_AFRICA", "GW": "WEST_AFRICA",
	"SN": "WEST_AFRICA", "BJ": "WEST_AFRICA", "BF": "WEST_AFRICA", "TG": "WEST_AFRICA",
	"ML": "WEST_AFRICA", "GN": "WEST_AFRICA", "SL": "WEST_AFRICA", "LR": "WEST_AFRICA",

	"KE": "EAST_AFRICA", "TZ": "EAST_AFRICA", "UG": "EAST_AFRICA", "ET": "EAST_AFRICA",
	"RW": "EAST_AFRICA", "MZ": "EAST_AFRICA",

	"DE": "EUROPE", "NL": "EUROPE", "BE": "EUROPE", "FR": "EUROPE", "IT": "EUROPE",
	"ES": "EUROPE", "PT": "EUROPE", "GB": "EUROPE", "PL": "EUROPE", "CH": "EUROPE",

	"AE": "MIDDLE_EAST", "SA": "MIDDLE_EAST", "TR": "MIDDLE_EAST", "EG": "MIDDLE_EAST",

	"IN": "SOUTH_ASIA", "BD": "SOUTH_ASIA", "PK": "SOUTH_ASIA", "LK": "SOUTH_ASIA",

	"VN": "EAST_ASIA", "CN": "EAST_ASIA", "JP": "EAST_ASIA", "KR": "EAST_ASIA",
	"TH": "EAST_ASIA", "ID": "EAST_ASIA", "MY": "EAST_ASIA",

	"US": "NORTH_AMERICA", "CA": "NORTH_AMERICA", "MX": "NORTH_AMERICA",
	"BR": "SOUTH_AMERICA", "AR": "SOUTH_AMERICA",
}

// RegionOf returns the macro-region of a country code, or "" if unknown.
func RegionOf(country string) string {
	return countryRegions[models.NormalizeTag(country)]
}

// DestinationCountry extracts the country code from destinations written as
// "City, CC". A bare two-letter destination is taken as the code itself.
func DestinationCountry(destination string) string {
	dest := strings.TrimSpace(destination)
	if i := strings.LastIndex(dest, ","); i >= 0 {
		dest = dest[i+1:]
	}
	dest = models.NormalizeTag(dest)
	if len(dest) != 2 {
		return ""
	}
	return dest
}
