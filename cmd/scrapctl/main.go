// Command scrapctl is a terminal client for the scrap marketplace.
package main

import (
	"os"

	"github.com/Raj-venom/scrap-dai-client/cmd/scrapctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
