package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// canonicalNeighborhoods lists the names the prediction model was trained on,
// keyed by their folded (lower-case, accent-free) form.
var canonicalNeighborhoods = []string{
	"Palermo",
	"Belgrano",
	"Recoleta",
	"Caballito",
	"Villa Crespo",
	"Colegiales",
	"Núñez",
	"Puerto Madero",
	"San Telmo",
	"Monserrat",
	"Retiro",
	"Barrio Norte",
	"Almagro",
	"Boedo",
	"Flores",
	"Parque Patricios",
	"Villa Urquiza",
	"Saavedra",
	"Villa Devoto",
	"Villa del Parque",
}

// neighborhoodAliases maps spelling variants and sub-neighborhoods onto a
// canonical name. Keys are folded.
var neighborhoodAliases = map[string]string{
	"palermo soho":      "Palermo",
	"palermo hollywood": "Palermo",
	"palermo chico":     "Palermo",
	"palermo viejo":     "Palermo",
	"palermo nuevo":     "Palermo",
	"las canitas":       "Palermo",
	"belgrano r":        "Belgrano",
	"belgrano c":        "Belgrano",
	"barrio chino":      "Belgrano",
	"monserrat centro":  "Monserrat",
	"montserrat":        "Monserrat",
	"devoto":            "Villa Devoto",
	"urquiza":           "Villa Urquiza",
	"madero":            "Puerto Madero",
}

var whitespaceRun = regexp.MustCompile(`\s+`)
var nonFolderChars = regexp.MustCompile(`[^A-Z0-9_]`)

// NeighborhoodNormalizer maps free-text neighborhood input to the names the
// inference backend recognizes.
type NeighborhoodNormalizer struct {
	table map[string]string
}

// NewNeighborhoodNormalizer builds the lookup table. Every canonical name is
// also reachable as "zona <name>".
func NewNeighborhoodNormalizer() *NeighborhoodNormalizer {
	table := make(map[string]string, len(canonicalNeighborhoods)*2+len(neighborhoodAliases))
	for _, name := range canonicalNeighborhoods {
		key := foldKey(name)
		table[key] = name
		table["zona "+key] = name
	}
	for alias, name := range neighborhoodAliases {
		table[alias] = name
		table["zona "+alias] = name
	}
	return &NeighborhoodNormalizer{table: table}
}

// Lookup returns the canonical name for raw when it is in the table.
func (n *NeighborhoodNormalizer) Lookup(raw string) (string, bool) {
	name, ok := n.table[foldKey(raw)]
	return name, ok
}

// Normalize returns the canonical name for raw, or the trimmed input with its
// first letter upper-cased when the table has no entry.
func (n *NeighborhoodNormalizer) Normalize(raw string) string {
	if name, ok := n.Lookup(raw); ok {
		return name
	}
	return capitalizeFirst(strings.TrimSpace(raw))
}

// FolderName folds a neighborhood into the upper-case folder naming used by
// the report bucket: "Palermo Soho" -> "PALERMO_SOHO", "Núñez" -> "NUNEZ".
func FolderName(barrio string) string {
	folded := stripMarks(strings.TrimSpace(barrio))
	folded = strings.ToUpper(folded)
	folded = whitespaceRun.ReplaceAllString(folded, "_")
	return nonFolderChars.ReplaceAllString(folded, "")
}

func foldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	return stripMarks(s)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
