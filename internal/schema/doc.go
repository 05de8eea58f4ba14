// Package schema turns Go record types into JSON Schemas that are both shown to
// the language model and enforced on its replies.
//
// A Validator reflects the schema once from struct tags, compiles it, and then
// decodes raw model content into the typed record. Any parse or conformance
// failure surfaces as services.ErrMalformedResponse; no repair is attempted.
package schema
