package main

import (
	"os"

	"github.com/cosmicdesign-ux/Pharos-Testnet-Bot/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
