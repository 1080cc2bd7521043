package mapping

// bankNameMappings associates bank sheet titles (as they appear in the rate
// workbook) with the canonical identifiers the upstream API uses for the same
// banks. Names not listed here fall back to transliteration.
var bankNameMappings = map[string]string{
	"Сбербанк":        "sberbank",
	"ВТБ":             "vtb",
	"Альфа-Банк":      "alfabank",
	"Газпромбанк":     "gazprombank",
	"Россельхозбанк":  "rshb",
	"Росбанк":         "rosbank",
	"Промсвязьбанк":   "psb",
	"Открытие":        "open",
	"Совкомбанк":      "sovcombank",
	"Райффайзенбанк":  "raiffeisen",
	"ДОМ.РФ":          "domrf",
	"Банк Уралсиб":    "uralsib",
	"Банк Санкт-Петербург": "bspb",
	"Абсолют Банк":    "absolutbank",
	"Металлинвестбанк": "metallinvest",
}
