package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

// Free-text interpretation. Guests type whatever they want, so decision
// points match loose token sets instead of strict enums.

var payOrderPattern = regexp.MustCompile(`(?i)\b(?:pagar|pagamento|pague|fechar|comanda|mesa|conta)\b\D*?(\d+)`)

// parsePayOrder recognizes "pagar comanda 42", "fechar a mesa 7" etc.
func parsePayOrder(text string) (string, bool) {
	m := payOrderPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var deaccent = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func normalizeToken(text string) string {
	return deaccent.Replace(strings.ToLower(strings.TrimSpace(text)))
}

var affirmatives = map[string]bool{
	"sim": true, "s": true, "ss": true, "yes": true, "ok": true, "okay": true,
	"claro": true, "confirmo": true, "confirmar": true, "confirma": true,
	"correto": true, "certo": true, "isso": true, "exato": true,
	"confere": true, "pode ser": true, "bora": true, "👍": true, "blz": true,
	"beleza": true, "uhum": true, "aham": true,
}

var negatives = map[string]bool{
	"nao": true, "n": true, "no": true, "negativo": true, "errado": true,
	"incorreto": true, "cancelar": true, "cancela": true, "nunca": true,
	"nao confere": true, "nao quero": true, "sem": true, "nada": true,
	"dispenso": true, "deixa": true, "👎": true,
}

func isAffirmative(text string) bool {
	return affirmatives[normalizeToken(text)]
}

func isNegative(text string) bool {
	t := normalizeToken(text)
	if negatives[t] {
		return true
	}
	// "não quero", "sem gorjeta", "nada disso"…
	for _, prefix := range []string{"nao ", "sem ", "nada "} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// parseScore reads an NPS score between 0 and 10. "nota 8" style answers
// are accepted too.
func parseScore(text string) (int, bool) {
	for _, f := range strings.Fields(text) {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		if n < 0 || n > 10 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// parsePeopleCount reads the split size ("3", "3 pessoas", "em 4").
func parsePeopleCount(text string) (int, bool) {
	for _, f := range strings.Fields(text) {
		if n, err := strconv.Atoi(f); err == nil {
			return n, true
		}
	}
	return 0, false
}
