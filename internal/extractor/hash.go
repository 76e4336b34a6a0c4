package extractor

import (
	"encoding/hex"
	"regexp"
	"strings"

	"lukechampine.com/blake3"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// ContentHash fingerprints source text. Whitespace runs are collapsed so
// reformatting alone does not change the hash.
func ContentHash(content string) string {
	sum := blake3.Sum256([]byte(canonicalize(content)))
	return hex.EncodeToString(sum[:16])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
