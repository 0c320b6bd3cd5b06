package registry

import (
	"strings"

	"github.com/voicelog/product-identity/app/textkey"
)

var soundAlikes = strings.NewReplacer(
	"ph", "f",
	"ck", "k",
	"gh", "g",
	"sch", "sk",
	"x", "ks",
)

// PhoneticKey reduces text to a per-word consonant skeleton so that common
// transcription slips ("magtane" / "magtein", "fish oyl" / "fish oil")
// collapse to the same key. Each word keeps its first letter.
func PhoneticKey(s string) string {
	words := strings.Fields(textkey.NormalizeKey(s))
	codes := make([]string, 0, len(words))
	for _, w := range words {
		if code := wordCode(soundAlikes.Replace(w)); code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

func wordCode(w string) string {
	var b strings.Builder
	var last byte
	for i := 0; i < len(w); i++ {
		c := consonantClass(w[i])
		if i == 0 {
			b.WriteByte(c)
			last = c
			continue
		}
		if isVowelLike(c) {
			last = 0
			continue
		}
		if c == last {
			continue
		}
		b.WriteByte(c)
		last = c
	}
	return b.String()
}

func consonantClass(c byte) byte {
	switch c {
	case 'c', 'q':
		return 'k'
	case 'z':
		return 's'
	case 'v':
		return 'f'
	}
	return c
}

func isVowelLike(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'h', 'w':
		return true
	}
	return false
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
