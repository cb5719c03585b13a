// Package tags provides the tag-parsing collaborators used when decoding revision rows.
//
// Two encodings of the raw attribute column are supported:
//
//   - Embedded: "k1=v1;k2=v2". A literal ';', '=' or '\' inside a key or value is preceded by
//     a backslash. See ParseEmbedded and FormatEmbedded.
//   - JSON: a flat JSON object {"k1":"v1","k2":"v2"}. See ParseJSON and FormatJSON.
//
// All parsers are pure functions and never fail: empty, NULL or unparsable input yields empty tags.
package tags
