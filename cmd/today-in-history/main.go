package main

import "github.com/pfrederiksen/today-in-history/internal/cli"

func main() {
	cli.Execute()
}
