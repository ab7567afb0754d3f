// Package organizer finishes a job: the rendered file moves from staging into
// the library under a prompt-derived name, the job's asset directory is
// removed, and staging artifacts past their retention window are pruned.
package organizer
