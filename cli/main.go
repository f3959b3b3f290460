package main

import "github.com/storegraph/storegraph/cli/cmd"

func main() {
	cmd.Execute()
}
