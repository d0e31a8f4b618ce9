package main

import "github.com/bryanchriswhite/viewcapture/cmd/viewcapture/commands"

func main() {
	commands.Execute()
}
