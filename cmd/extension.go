package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Environment passed to extensions, mirroring the global flags.
const (
	EnvConfigFile = "TAXLOT_CONFIG"
	EnvVerbose    = "TAXLOT_VERBOSE"
	EnvMarkdown   = "TAXLOT_MARKDOWN"
)

// ExtensionPrefix is the prefix of external subcommand binaries.
const ExtensionPrefix = "cgt-"

// RunExtension attempts to find and execute an external cgt-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	lp, err := exec.LookPath(ExtensionPrefix + subcommand)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", lp, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv passes global flags as environment variables.
func extensionEnv() []string {
	return []string{
		EnvConfigFile + "=" + *configFile,
		EnvVerbose + "=" + strconv.FormatBool(*Verbose),
		EnvMarkdown + "=" + strconv.FormatBool(*rawMarkdown),
	}
}
