package domain

// languageToTimezone guesses an IANA zone from a Telegram language code.
// Best effort only: it is consulted once, at first contact, and the user
// can always override the result in settings.
var languageToTimezone = map[string]string{
	"am": "Africa/Addis_Ababa",
	"ti": "Africa/Asmara",
	"so": "Africa/Mogadishu",
	"ar": "Africa/Cairo",
	"sw": "Africa/Nairobi",
	"ha": "Africa/Lagos",
	"yo": "Africa/Lagos",
	"ig": "Africa/Lagos",
	"zu": "Africa/Johannesburg",
	"af": "Africa/Johannesburg",
	"xh": "Africa/Johannesburg",
	"ru": "Europe/Moscow",
	"fr": "Europe/Paris",
	"de": "Europe/Berlin",
	"es": "Europe/Madrid",
	"it": "Europe/Rome",
	"pt": "Europe/Lisbon",
	"tr": "Europe/Istanbul",
	"he": "Asia/Jerusalem",
	"fa": "Asia/Tehran",
	"ur": "Asia/Karachi",
	"hi": "Asia/Kolkata",
	"ta": "Asia/Kolkata",
	"te": "Asia/Kolkata",
	"mr": "Asia/Kolkata",
	"bn": "Asia/Dhaka",
	"ne": "Asia/Kathmandu",
	"si": "Asia/Colombo",
	"th": "Asia/Bangkok",
	"vi": "Asia/Ho_Chi_Minh",
	"id": "Asia/Jakarta",
	"ms": "Asia/Kuala_Lumpur",
	"tl": "Asia/Manila",
	"my": "Asia/Yangon",
	"km": "Asia/Phnom_Penh",
	"zh": "Asia/Shanghai",
	"ja": "Asia/Tokyo",
	"ko": "Asia/Seoul",
	"kk": "Asia/Almaty",
	"ky": "Asia/Bishkek",
	"uz": "Asia/Tashkent",
	"az": "Asia/Baku",
	"hy": "Asia/Yerevan",
	"ka": "Asia/Tbilisi",
	"mn": "Asia/Ulaanbaatar",
}

// DetectTimezone maps a language code to a default timezone, falling back
// to UTC when there is no mapping.
func DetectTimezone(languageCode string) string {
	if tz, ok := languageToTimezone[languageCode]; ok {
		return tz
	}
	return "UTC"
}
