// Command relay is the terminal client entrypoint.
package main

import (
	"errors"
	"fmt"
	"os"

	relaycmder "github.com/fieldnotes/relay/cmd/relay"
	"github.com/fieldnotes/relay/internal/driver"
)

func main() {
	cmd := relaycmder.NewRelayCmd()

	if err := cmd.Execute(); err != nil {
		var exitErr *driver.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, exitErr.Err)
			}
			os.Exit(int(exitErr.Code))
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(driver.ExitUsageError))
	}
}
