// Package util holds small helpers used by internal/barrier — the same
// log-formatting idiom the teacher uses throughout its cluster coordination
// code.
package util

import "fmt"

// FormatMultiError formats a slice of errors (as produced by
// hashicorp/go-multierror) for logging.
func FormatMultiError(merrs []error) string {
	var msg string
	for i := range merrs {
		msg += fmt.Sprintf("%+v\n", merrs[i])
	}
	return msg
}
