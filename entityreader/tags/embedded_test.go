package tags_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/tags"
)

func Test_ParseEmbedded(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected entityreader.Tags
	}{
		{
			name:     "empty string",
			raw:      "",
			expected: entityreader.Tags{},
		},
		{
			name:     "two pairs",
			raw:      "k1=v1;k2=v2",
			expected: entityreader.Tags{{Key: "k1", Value: "v1"}, {Key: "k2", Value: "v2"}},
		},
		{
			name:     "source order is kept",
			raw:      "name=Main Street;highway=primary;created_by=JOSM",
			expected: entityreader.Tags{{Key: "name", Value: "Main Street"}, {Key: "highway", Value: "primary"}, {Key: "created_by", Value: "JOSM"}},
		},
		{
			name:     "value keeps further single equal signs",
			raw:      "formula=a=b",
			expected: entityreader.Tags{{Key: "formula", Value: "a=b"}},
		},
		{
			name:     "escaped separators are unescaped",
			raw:      `note=x\;y;k\=ey=v`,
			expected: entityreader.Tags{{Key: "note", Value: "x;y"}, {Key: "k=ey", Value: "v"}},
		},
		{
			name:     "value ending in an escaped semicolon",
			raw:      `a=x\;;b=c`,
			expected: entityreader.Tags{{Key: "a", Value: "x;"}, {Key: "b", Value: "c"}},
		},
		{
			name:     "value starting with an escaped equal sign",
			raw:      `k=\=x`,
			expected: entityreader.Tags{{Key: "k", Value: "=x"}},
		},
		{
			name:     "escaped backslash",
			raw:      `path=C:\\temp`,
			expected: entityreader.Tags{{Key: "path", Value: `C:\temp`}},
		},
		{
			name:     "trailing backslash is kept",
			raw:      `k=v\`,
			expected: entityreader.Tags{{Key: "k", Value: `v\`}},
		},
		{
			name:     "pair without value",
			raw:      "building;name=Town Hall",
			expected: entityreader.Tags{{Key: "building", Value: ""}, {Key: "name", Value: "Town Hall"}},
		},
		{
			name:     "empty pairs are skipped",
			raw:      ";k1=v1;;;",
			expected: entityreader.Tags{{Key: "k1", Value: "v1"}},
		},
		{
			name:     "empty value",
			raw:      "fixme=",
			expected: entityreader.Tags{{Key: "fixme", Value: ""}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tags.ParseEmbedded(tc.raw))
		})
	}
}

func Test_ParseEmbedded_MapsToAttributeMapping(t *testing.T) {
	parsed := tags.ParseEmbedded("k1=v1;k2=v2")

	assert.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, parsed.Map())
}

func Test_FormatEmbedded_RoundTrips(t *testing.T) {
	original := entityreader.Tags{
		{Key: "name", Value: "Caf=e; Bar"},
		{Key: "k;ey", Value: "v=al;"},
		{Key: "empty", Value: ""},
	}

	formatted := tags.FormatEmbedded(original)

	assert.Equal(t, `name=Caf\=e\; Bar;k\;ey=v\=al\;;empty=`, formatted)
	assert.Equal(t, original, tags.ParseEmbedded(formatted))
}

func Test_FormatEmbedded_RoundTrips_WithLeadingSeparatorsAndBackslashes(t *testing.T) {
	testCases := []struct {
		name string
		tags entityreader.Tags
	}{
		{name: "value starting with an equal sign", tags: entityreader.Tags{{Key: "k", Value: "=x"}}},
		{name: "value starting with a semicolon", tags: entityreader.Tags{{Key: "k", Value: ";x"}}},
		{name: "key starting with an equal sign", tags: entityreader.Tags{{Key: "=k", Value: "v"}}},
		{name: "key starting with a semicolon", tags: entityreader.Tags{{Key: ";k", Value: "v"}}},
		{name: "value made of separators only", tags: entityreader.Tags{{Key: "k", Value: ";=;="}, {Key: "next", Value: "v"}}},
		{name: "backslashes before separators", tags: entityreader.Tags{{Key: `a\`, Value: `\;\=`}}},
		{name: "trailing backslash", tags: entityreader.Tags{{Key: "k", Value: `v\`}, {Key: "next", Value: "v"}}},
		{name: "empty key", tags: entityreader.Tags{{Key: "", Value: "v"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.tags, tags.ParseEmbedded(tags.FormatEmbedded(tc.tags)))
		})
	}
}

func Test_FormatEmbedded_OfNoTags_IsEmpty(t *testing.T) {
	assert.Equal(t, "", tags.FormatEmbedded(nil))
}
