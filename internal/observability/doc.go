// Package observability provides the run event log, metrics and alerts
// derived from the test history, Slack notification and logger
// construction for cimatrix. Events are persisted as JSON Lines and every
// report is computed on demand from the event log or the history file.
package observability
