package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// SplitCommand securely splits a command string into a slice of arguments.
// It prevents shell injection by not using a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	return args, nil
}

// outputOptions are reserved for the jobs themselves.
var outputOptions = map[string]bool{
	"-i":              true,
	"-f":              true,
	"-map":            true,
	"-y":              true,
	"-n":              true,
	"-filter_complex": true,
}

// SanitizeGlobalArgs checks the configured prefix shared by every job.
func SanitizeGlobalArgs(args []string) error {
	for _, arg := range args {
		if outputOptions[arg] {
			return fmt.Errorf("option not allowed in global args: %s", arg)
		}
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	return nil
}
