package main

import (
	"github.com/persimmon-labs/uxagent-cli/cmd"
)

func main() {
	cmd.Execute()
}
