package tags

import (
	"strings"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

const (
	pairSeparator  = ';'
	valueSeparator = '='
	escapeChar     = '\\'
)

var embeddedEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, "=", `\=`)

// ParseEmbedded decodes the embedded "k1=v1;k2=v2" attribute format.
//
// Pairs are separated by ';', the key ends at the first unescaped '='. A backslash takes the next
// byte literally, a trailing backslash is kept as is. A pair without '=' becomes a key with an empty
// value, empty pairs are skipped.
func ParseEmbedded(raw string) entityreader.Tags {
	result := entityreader.Tags{}
	if raw == "" {
		return result
	}

	var key, value strings.Builder
	inValue := false

	flush := func() {
		if key.Len() > 0 || inValue {
			result = append(result, entityreader.Tag{Key: key.String(), Value: value.String()})
		}

		key.Reset()
		value.Reset()
		inValue = false
	}

	current := func() *strings.Builder {
		if inValue {
			return &value
		}

		return &key
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		switch {
		case c == escapeChar && i+1 < len(raw):
			current().WriteByte(raw[i+1])
			i++

		case c == pairSeparator:
			flush()

		case c == valueSeparator && !inValue:
			inValue = true

		default:
			current().WriteByte(c)
		}
	}

	flush()

	return result
}

// FormatEmbedded encodes tags in the embedded attribute format.
//
// Backslashes and separators inside keys and values are escaped with a backslash, so
// ParseEmbedded(FormatEmbedded(tags)) returns tags unchanged.
func FormatEmbedded(tags entityreader.Tags) string {
	var b strings.Builder

	for i, tag := range tags {
		if i > 0 {
			b.WriteByte(pairSeparator)
		}

		b.WriteString(embeddedEscaper.Replace(tag.Key))
		b.WriteByte(valueSeparator)
		b.WriteString(embeddedEscaper.Replace(tag.Value))
	}

	return b.String()
}

var _ entityreader.TagParser = ParseEmbedded
