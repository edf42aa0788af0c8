package main

import "github.com/notargets/m2c-go/cmd"

func main() {
	cmd.Execute()
}
