// Command navconv converts navigation sensor files to standardized,
// schema-validated JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/3leaps/navconv/internal/cmd"
)

// Populated at link time via -ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

var exitCodeRe = regexp.MustCompile(`\(exit code (\d+)\)$`)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode extracts the code embedded by the command layer, defaulting to 1.
func exitCode(err error) int {
	m := exitCodeRe.FindStringSubmatch(err.Error())
	if len(m) == 2 {
		if code, perr := strconv.Atoi(m[1]); perr == nil && code > 0 {
			return code
		}
	}
	return 1
}
