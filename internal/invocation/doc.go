// Package invocation holds the per-run state of a script: the caller's
// metadata, the run identity and the progress the script reports.
package invocation
