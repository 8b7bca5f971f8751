package main

import "github.com/DrSkyle/assetpulse/cmd/assetpulse/commands"

func main() {
	commands.Execute()
}
