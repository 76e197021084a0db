package main

import (
	"github.com/warpcall/warpcall/cmd"
	"github.com/warpcall/warpcall/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
