package main

import "github.com/hookcatch/hookcatch/cmd"

func main() {
	cmd.Execute()
}
