// Command estatectl runs estate record actions directly against the
// configured store, without going through the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	rootCmd, closeSession := newRootCmd()
	err := rootCmd.Execute()
	closeSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
