// Package workflow drives queued jobs through the generation stages.
//
// The manager polls the queue for work, claims one job at a time, and runs
// it through scripting, asset gathering, rendering, and organizing. Stage
// failures are classified into review (input or configuration problems) or
// failed (transient or external-tool problems) so operators can tell which
// jobs are worth retrying.
package workflow
