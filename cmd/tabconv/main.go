// Command tabconv runs the file transformation pipeline from the terminal:
// inspect a CSV or XLSX file, or clean and convert it to the other format.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/transformer/internal/core"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+msg))
		os.Exit(1)
	}
}
