package main

import "github.com/notargets/gomultigrid/cmd"

func main() {
	cmd.Execute()
}
