// Package main hosts the contentmill CLI entrypoint and command graph.
//
// Each generation command (debate, roundtable, explainer, listicle, haiku,
// scripted, long) gathers its inputs from flags or interactive prompts,
// confirms before the first paid API call, and hands a writer to the run
// pipeline, which renders narration and stills and assembles the video in a
// fresh run directory. render and assemble redo the later stages for an
// existing directory. runs, doctor and config cover history, readiness checks
// and configuration scaffolding.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
