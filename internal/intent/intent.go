// Package intent classifies inbound messages and extracts the keyword or
// label each command works with.
package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/user/agendabot/internal/types"
)

// Placeholder is the label used when nothing is left after stripping.
const Placeholder = "Pendiente"

var (
	deleteVerbRe = regexp.MustCompile(`(?i)(eliminar|borrar)`)
	editVerbRe   = regexp.MustCompile(`(?i)(editar|cambiar)`)
	connectiveRe = regexp.MustCompile(`(?i)\s(?:al|para\s+el|para\s+la|a\s+las|a\s+la)\s`)
	wordRe       = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

var articles = set("el", "la", "los", "las", "mi", "mis")

var fillers = set("el", "la", "los", "las", "para", "por", "de", "del", "al")

var creationVerbs = set(
	"recordar", "recordarme", "recuerdame", "agendar", "agenda", "anotar",
	"apuntar", "crear", "programar", "agregar", "anadir", "que",
)

var lexicon = map[string]string{
	"mama":    "mamá",
	"papa":    "papá",
	"nino":    "niño",
	"nina":    "niña",
	"kelly":   "Kelly",
	"jose":    "José",
	"ana":     "Ana",
	"maria":   "María",
	"juan":    "Juan",
	"reunion": "reunión",
}

// Classify picks the intent with an ordered cascade: delete, edit, query,
// and create for everything else.
func Classify(text string) types.Intent {
	folded := Fold(text)
	switch {
	case strings.Contains(folded, "eliminar") || strings.Contains(folded, "borrar"):
		return types.IntentDelete
	case strings.Contains(folded, "editar") || strings.Contains(folded, "cambiar"):
		return types.IntentEdit
	case strings.Contains(folded, "que tengo"):
		return types.IntentQuery
	default:
		return types.IntentCreate
	}
}

// DeleteKeyword strips the deletion verb and any leading article and
// lowercases the rest.
func DeleteKeyword(text string) string {
	kw := deleteVerbRe.ReplaceAllString(text, "")
	return strings.ToLower(trimWords(kw, articles, nil))
}

// EditKeyword takes the part of the message before the connective that
// introduces the new schedule ("al", "para el", "a las"...) and strips the
// edit verb, leading articles and trailing prepositions from it.
func EditKeyword(text string) string {
	target := text
	if loc := connectiveRe.FindStringIndex(text); loc != nil {
		target = text[:loc[0]]
	}
	target = editVerbRe.ReplaceAllString(target, "")
	return strings.ToLower(trimWords(target, articles, fillers))
}

// Label turns what is left of a creation message, once the date phrase is
// removed, into an event title.
func Label(remainder string) string {
	label := trimWords(remainder, creationVerbs, fillers)
	label = trimWords(label, fillers, fillers)
	label = Normalize(label)
	if label == "" {
		return Placeholder
	}
	return label
}

// Normalize lowercases the text, restores accents on a few common words and
// names, and capitalises the first letter.
func Normalize(text string) string {
	text = strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
	text = wordRe.ReplaceAllStringFunc(text, func(w string) string {
		if fixed, ok := lexicon[w]; ok {
			return fixed
		}
		return w
	})
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

// Fold lowercases text and removes diacritics so vocabulary checks accept
// "qué" and "que" alike.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// trimWords repeatedly drops leading words in head and trailing words in
// tail. Words are compared folded and without surrounding punctuation.
func trimWords(text string, head, tail map[string]bool) string {
	words := strings.Fields(text)
	for len(words) > 0 && head[bare(words[0])] {
		words = words[1:]
	}
	for len(words) > 0 && tail[bare(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Trim(strings.Join(words, " "), " ,.;:-")
}

func bare(word string) string {
	return Fold(strings.Trim(word, ",.;:!?¡¿-"))
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
