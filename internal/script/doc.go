// Package script writes narration scripts for the non-dialogue video kinds.
//
// Explainer, listicle, and haiku scripts come from a single request. Scripted
// videos revise an operator draft (plain text or Markdown). Long videos are
// planned as an Outline and then written section by section, each request
// seeing the script written so far.
package script
