package main

import "github.com/mora-fusion/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
