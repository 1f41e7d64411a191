package main

import (
	"os"

	"github.com/lendkeeper/lendkeeper/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
