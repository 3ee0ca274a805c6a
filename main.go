package main

import "github.com/user/sastbridge/cmd"

func main() {
	cmd.Execute()
}
