// Package dialogue drives multi-speaker conversations with a language model.
//
// Two policies are provided. Debate walks a fixed Format of rounds and steps,
// producing exactly one Turn per step. Roundtable lets the moderator open,
// each speaker nominate the next, and closes when the moderator nominates End;
// unknown nominations fall back to a random participant and a configurable
// turn limit bounds the run.
//
// Every turn is produced from the full prior Transcript, decoded against a JSON
// Schema reflected from the turn type, and attributed to the participant that
// was asked. Malformed replies end the run with services.ErrMalformedResponse.
package dialogue
