package main

import (
	"fmt"
	"os"

	"github.com/adamavenir/skillkit/internal/command"
)

func main() {
	if err := command.ExecuteBoardSetup(); err != nil {
		if !command.Reported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
