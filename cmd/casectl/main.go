package main

import "dhc-casetracker/cmd/casectl/commands"

func main() {
	commands.Execute()
}
