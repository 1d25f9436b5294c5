package supervisor

import (
	"fmt"
	"os"
)

// log writes a line prefixed with "[supervisor]" to stderr; callers pass
// fmt.Sprintln-style args. The supervisor package logs only through this
// helper and logf; other packages use the standard log package.
func log(args ...any) {
	prefixed := append([]any{"[supervisor]"}, args...)
	fmt.Fprintln(os.Stderr, prefixed...)
}

func logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[supervisor] "+format+"\n", args...)
}
