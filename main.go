package main

import (
	"sg-explorer/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
