package main

import (
	"github.com/luma/aurora/cmd"
)

func main() {
	cmd.Execute()
}
