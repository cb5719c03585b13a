package tags

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

// ParseJSON decodes a flat JSON object into tags, keeping the key order of the source.
// Non-string values are kept in their JSON text form. Anything that is not a valid JSON object
// yields empty tags.
func ParseJSON(raw string) entityreader.Tags {
	result := entityreader.Tags{}
	if raw == "" {
		return result
	}

	iter := jsoniter.ParseString(jsoniter.ConfigFastest, raw)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return result
	}

	iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
		var value string

		switch it.WhatIsNext() {
		case jsoniter.StringValue:
			value = it.ReadString()
		case jsoniter.NilValue:
			it.Skip()
		default:
			value = string(it.SkipAndReturnBytes())
		}

		result = append(result, entityreader.Tag{Key: key, Value: value})

		return it.Error == nil
	})

	if iter.Error != nil {
		return entityreader.Tags{}
	}

	return result
}

// FormatJSON encodes tags as a flat JSON object in tag order.
func FormatJSON(tags entityreader.Tags) string {
	stream := jsoniter.ConfigFastest.BorrowStream(nil)
	defer jsoniter.ConfigFastest.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, tag := range tags {
		if i > 0 {
			stream.WriteMore()
		}

		stream.WriteObjectField(tag.Key)
		stream.WriteString(tag.Value)
	}
	stream.WriteObjectEnd()

	return string(stream.Buffer())
}

var _ entityreader.TagParser = ParseJSON
