package main

import (
	"os"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/cmd/pumpkin/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
