// Package history records generation runs in a SQLite database under the
// state directory so past runs can be listed and inspected, and so runs cut
// short by a crash are marked failed on the next start.
//
// Each Run row tracks its kind, topic, output directory, current status
// (pending, writing, rendering, assembling, completed, failed), progress
// message, counts of turns, segments and skipped images, and the final video.
//
// Writes retry on SQLITE_BUSY with a short exponential backoff so that two
// concurrent invocations sharing a state directory do not fail each other.
package history
