package config

import (
	"fmt"
	"io"
	"os"
)

// Failf writes a formatted error line to w and returns the process exit
// code for a failed command.
func Failf(w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, format+"\n", args...)
	return 1
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	os.Exit(Failf(os.Stderr, format, args...))
}
