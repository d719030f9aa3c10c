package main

import "github.com/paperloom/paperloom/cmd/paperloom/cmd"

func main() {
	cmd.Execute()
}
