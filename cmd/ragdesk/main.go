package main

import "ragdesk/internal/cli"

func main() {
	cli.Execute()
}
