package main

import "github.com/npcforge/npcforge/cmd"

func main() {
	cmd.Execute()
}
