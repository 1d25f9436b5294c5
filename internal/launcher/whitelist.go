package launcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// allowedCommands is the stdio command whitelist (§4.4): only these basenames
// may be spawned, closing off arbitrary command execution from a malicious
// or malformed catalog entry.
var allowedCommands = map[string]bool{
	"uvx":     true,
	"python":  true,
	"python3": true,
	"node":    true,
	"npm":     true,
	"npx":     true,
	"uv":      true,
	"pip":     true,
	"pip3":    true,
}

const (
	maxArgLength = 1000
	maxArgCount  = 50
)

// forbiddenArgChars are metacharacters that must never appear in an argv
// element destined for exec (we never go through a shell, but a bridge may
// re-interpret these, so we reject them defensively at the boundary).
const forbiddenArgChars = ";&|`$(){}[]\\"

// ValidateCommand checks a stdio command's basename against the whitelist.
func ValidateCommand(command string) error {
	base := filepath.Base(command)
	if !allowedCommands[base] {
		return fmt.Errorf("command %q is not in the allowed command whitelist", command)
	}
	return nil
}

// ValidateArgs enforces the argument hygiene rules of §4.4.
func ValidateArgs(args []string) error {
	if len(args) > maxArgCount {
		return fmt.Errorf("too many arguments: %d (max %d)", len(args), maxArgCount)
	}
	for _, arg := range args {
		if len(arg) > maxArgLength {
			return fmt.Errorf("argument too long: %d bytes (max %d)", len(arg), maxArgLength)
		}
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("argument contains NUL byte")
		}
		if strings.HasPrefix(arg, "../") {
			return fmt.Errorf("argument %q must not begin with ../", arg)
		}
		if strings.ContainsAny(arg, forbiddenArgChars) {
			return fmt.Errorf("argument %q contains a forbidden character", arg)
		}
	}
	return nil
}
