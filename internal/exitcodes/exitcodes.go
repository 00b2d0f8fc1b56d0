// Package exitcodes defines the process exit codes used by suitegate.
//
// * Success (0): every executed suite exited 0 (skipped suites do not count)
// * TestFailure (1): one or more executed suites failed
// * RuntimeErr (2): the run could not start, e.g. bad configuration or an unknown suite name
// * Interrupted (130): the run was cancelled by a signal and its report is not authoritative
package exitcodes

const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
	Interrupted = 130
)
