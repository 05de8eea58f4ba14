// Package pipeline runs one content-mill run through its stages.
//
// A Pipeline executes Stages in order (write, render, assemble), each a
// Handler with Prepare and Execute phases. RunStage logs stage_start,
// stage_complete and stage_failure events and persists the run's status
// transitions through a Recorder, normally the history store. The first
// failing stage marks the run failed with an outcome derived from the error
// (canceled, rejected, failed) and stops the pipeline.
//
// Job carries the transcript lines, render report and assembled video
// between stages.
package pipeline
