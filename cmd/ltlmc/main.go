package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit status when an accepting cycle is found
const exitViolated = 2

var errViolated = errors.New("accepting cycle found")

func main() {
	err := rootCmd.Execute()
	switch {
	case errors.Is(err, errViolated):
		os.Exit(exitViolated)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
