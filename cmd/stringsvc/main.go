package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/cmd/stringsvc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
