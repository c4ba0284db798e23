package main

import (
	"github.com/BioHazard786/Pairline/cmd"
)

func main() {
	cmd.Execute()
}
