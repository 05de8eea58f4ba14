// Package render produces the numbered narration clips and stills that clip
// assembly pairs into a video.
//
// Narration failures are fatal. Image generation runs a bounded loop of
// attempt, rephrase, attempt; when the budget is spent the image is skipped
// and, optionally, the gap is filled with a neighbouring still.
package render
