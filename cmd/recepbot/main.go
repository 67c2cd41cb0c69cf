package main

import "github.com/kamir/recepbot/cmd/recepbot/cmd"

func main() {
	cmd.Execute()
}
