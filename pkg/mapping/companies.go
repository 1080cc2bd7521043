package mapping

// companyNameMappings associates insurer column headers with the canonical
// identifiers the upstream API uses for the same companies.
var companyNameMappings = map[string]string{
	"МАКС":                  "makc",
	"КАРДИФ":                "cardif",
	"АльфаСтрахование":      "alfastrah",
	"ВСК":                   "vsk",
	"Пульс":                 "puls",
	"Индивидуальная заявка": "nonsegment",
	"ПАРИ":                  "skpari",
	"Абсолют Cтрахование":   "absolutv2",
	"Совкомбанк Страхование": "sovcomins",
	"Югория":                "yugoria",
	"Росгосстрах":           "rgs",
	"Ренессанс Страхование": "renins",
	"Зетта Страхование":     "zettains",
	"Согласие":              "soglasie",
	"ЭНЕРГОГАРАНТ":          "energogarant",
}
