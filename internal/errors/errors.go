package errors

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/studyplan/internal/logger"
)

// exit is swapped in tests
var exit = os.Exit

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Print writes a formatted error to w without exiting
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, Format(err))
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err == nil {
		return
	}
	logger.Error("command failed", "error", err)
	Print(os.Stderr, err)
	exit(1)
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...any) {
	logger.Error("command failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	exit(1)
}
