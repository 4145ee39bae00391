package main

import "github.com/whiskdesk/whisk/cmd"

func main() {
	cmd.Execute()
}
