// Package logging provides opt-in file-based logging with rotation.
// When the --debug flag is set, comprehensive logs are written to
// ~/.ixchel/logs/ for debugging and troubleshooting.
//
// By default (without --debug), logging stays off the critical path:
// commands run without any log file.
package logging
