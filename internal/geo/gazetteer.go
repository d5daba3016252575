package geo

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// gazetteer holds well-known Iberian region and city coordinates so the common
// shipping destinations never hit the external geocoder.
var gazetteer = map[string]Coordinates{
	// Portugal
	"lisbon":           {Lat: 38.7223, Lng: -9.1393},
	"lisboa":           {Lat: 38.7223, Lng: -9.1393},
	"porto":            {Lat: 41.1579, Lng: -8.6291},
	"setubal":          {Lat: 38.5244, Lng: -8.8882},
	"coimbra":          {Lat: 40.2033, Lng: -8.4103},
	"braga":            {Lat: 41.5454, Lng: -8.4265},
	"aveiro":           {Lat: 40.6405, Lng: -8.6538},
	"faro":             {Lat: 37.0194, Lng: -7.9304},
	"leiria":           {Lat: 39.7436, Lng: -8.8071},
	"viseu":            {Lat: 40.6566, Lng: -7.9125},
	"evora":            {Lat: 38.571, Lng: -7.9135},
	"guarda":           {Lat: 40.5373, Lng: -7.2675},
	"santarem":         {Lat: 39.2367, Lng: -8.685},
	"castelo branco":   {Lat: 39.8222, Lng: -7.4909},
	"portalegre":       {Lat: 39.2967, Lng: -7.428},
	"beja":             {Lat: 38.014, Lng: -7.8632},
	"viana do castelo": {Lat: 41.6932, Lng: -8.8329},
	"vila real":        {Lat: 41.301, Lng: -7.7441},
	"braganca":         {Lat: 41.806, Lng: -6.7567},
	"ponta delgada":    {Lat: 37.7412, Lng: -25.6756},
	"funchal":          {Lat: 32.6669, Lng: -16.9241},
	"algarve":          {Lat: 37.0179, Lng: -7.9308},

	// Spain
	"madrid":        {Lat: 40.4168, Lng: -3.7038},
	"barcelona":     {Lat: 41.3874, Lng: 2.1686},
	"valencia":      {Lat: 39.4699, Lng: -0.3763},
	"seville":       {Lat: 37.3891, Lng: -5.9845},
	"sevilla":       {Lat: 37.3891, Lng: -5.9845},
	"zaragoza":      {Lat: 41.6488, Lng: -0.8891},
	"malaga":        {Lat: 36.7213, Lng: -4.4214},
	"murcia":        {Lat: 37.9922, Lng: -1.1307},
	"bilbao":        {Lat: 43.263, Lng: -2.935},
	"alicante":      {Lat: 38.3452, Lng: -0.481},
	"valladolid":    {Lat: 41.6523, Lng: -4.7245},
	"vigo":          {Lat: 42.2406, Lng: -8.7207},
	"gijon":         {Lat: 43.5322, Lng: -5.6611},
	"a coruna":      {Lat: 43.3623, Lng: -8.4115},
	"coruna":        {Lat: 43.3623, Lng: -8.4115},
	"granada":       {Lat: 37.1773, Lng: -3.5986},
	"cordoba":       {Lat: 37.8882, Lng: -4.7794},
	"palma":         {Lat: 39.5696, Lng: 2.6502},
	"pamplona":      {Lat: 42.8125, Lng: -1.6458},
	"san sebastian": {Lat: 43.3183, Lng: -1.9812},
	"salamanca":     {Lat: 40.9701, Lng: -5.6635},
	"toledo":        {Lat: 39.8628, Lng: -4.0273},
	"santander":     {Lat: 43.4623, Lng: -3.80998},
}

var (
	stripMarks     = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	unsafeCharsRe  = regexp.MustCompile(`[^a-z0-9,\s-]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	maxGazetteerNG = 4
)

// NormalizeRegion folds free-form region text to the canonical lookup form:
// diacritics stripped, lowercased, punctuation collapsed to single spaces.
func NormalizeRegion(value string) string {
	stripped, _, err := transform.String(stripMarks, value)
	if err != nil {
		stripped = value
	}
	lowered := strings.ToLower(stripped)
	cleaned := unsafeCharsRe.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// LookupGazetteer matches normalized text against the built-in gazetteer.
// Matching widens progressively: the full string, then each comma segment,
// then every token n-gram from length four down to single tokens.
func LookupGazetteer(normalized string) (Coordinates, bool) {
	if normalized == "" {
		return Coordinates{}, false
	}
	if coords, ok := gazetteer[normalized]; ok {
		return coords, true
	}

	for _, part := range strings.Split(normalized, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if coords, ok := gazetteer[part]; ok {
			return coords, true
		}
	}

	tokens := strings.Fields(strings.ReplaceAll(normalized, "-", " "))
	start := maxGazetteerNG
	if len(tokens) < start {
		start = len(tokens)
	}
	for size := start; size >= 1; size-- {
		for i := 0; i+size <= len(tokens); i++ {
			chunk := strings.Join(tokens[i:i+size], " ")
			if coords, ok := gazetteer[chunk]; ok {
				return coords, true
			}
		}
	}
	return Coordinates{}, false
}
