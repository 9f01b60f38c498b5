package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	testPrefix        = "_test_"
	maxSourceNameWord = 10
	versionSeparator  = "_v"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "of": {}, "or": {}, "the": {},
	"for": {}, "in": {}, "on": {}, "to": {}, "with": {},
}

// MakeSourceName derives the stable dataset name from a title.
func MakeSourceName(title string, test bool) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := make([]string, 0, len(words))

	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}

		kept = append(kept, w)
		if len(kept) == maxSourceNameWord {
			break
		}
	}

	name := strings.Join(kept, "_")
	if test && !strings.HasPrefix(name, testPrefix) {
		name = testPrefix + name
	}

	return name
}

// NormaliseSourceName cleans a caller supplied source name with the same
// rules as MakeSourceName, without dropping stop words.
func NormaliseSourceName(name string, test bool) string {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), testPrefix)

	var b strings.Builder

	lastUnderscore := false

	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)

			lastUnderscore = false

			continue
		}

		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')

			lastUnderscore = true
		}
	}

	out := strings.TrimSuffix(b.String(), "_")
	if test && !strings.HasPrefix(out, testPrefix) {
		out = testPrefix + out
	}

	return out
}

// SourceID is the per-version identifier of a dataset.
func SourceID(sourceName string, version int) string {
	return fmt.Sprintf("%s%s%d", sourceName, versionSeparator, version)
}

// SplitSourceID is the inverse of SourceID.
func SplitSourceID(sourceID string) (string, int, bool) {
	i := strings.LastIndex(sourceID, versionSeparator)
	if i <= 0 {
		return "", 0, false
	}

	v, err := strconv.Atoi(sourceID[i+len(versionSeparator):])
	if err != nil || v < 1 {
		return "", 0, false
	}

	return sourceID[:i], v, true
}
