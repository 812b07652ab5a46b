package utils

import (
	_ "embed"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// CensorPlaceholder replaces blocklisted words in rendered text.
const CensorPlaceholder = "[ censored ]"

//go:embed badwords.json
var badWordsRaw []byte

var badWords map[string]struct{}

func init() {
	var payload struct {
		Words []string `json:"words"`
	}
	if err := json.Unmarshal(badWordsRaw, &payload); err != nil {
		log.Fatal().Err(err).Msg("Failed to load bad word list")
	}
	badWords = make(map[string]struct{}, len(payload.Words))
	for _, word := range payload.Words {
		badWords[word] = struct{}{}
	}
}

// Censor replaces every whitespace-delimited token that exactly matches a
// blocklist entry with CensorPlaceholder. Matching is whole-token only, so
// a blocklisted word inside a longer token is left alone. No case folding,
// no punctuation stripping.
func Censor(text string) string {
	if text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	start := 0
	flush := func(end int) {
		token := text[start:end]
		if _, bad := badWords[token]; bad {
			b.WriteString(CensorPlaceholder)
		} else {
			b.WriteString(token)
		}
	}

	inToken := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inToken {
				flush(i)
				inToken = false
			}
			b.WriteRune(r)
		} else if !inToken {
			start = i
			inToken = true
		}
	}
	if inToken {
		flush(len(text))
	}

	return b.String()
}
