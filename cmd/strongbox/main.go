package main

import "github.com/tmarsden/strongbox/cmd/strongbox/cmd"

func main() {
	cmd.Execute()
}
