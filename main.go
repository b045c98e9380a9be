package main

import "github.com/seika-studio/scriptforge/cmd"

func main() {
	cmd.Execute()
}
