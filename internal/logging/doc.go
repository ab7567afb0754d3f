// Package logging builds slog loggers with console and JSON handlers and
// standardized field names for job, stage, and run correlation.
//
// The console handler renders compact "ts LEVEL component: msg key=value"
// lines with the component attribute promoted into the message prefix; the
// JSON handler is the structured equivalent for log aggregation. WithContext
// derives job/stage/run attributes from a context annotated by the services
// package so every stage logs consistently without plumbing IDs by hand.
package logging
