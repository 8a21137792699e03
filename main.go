package main

import "github.com/mwinter/teams-scrape/cmd"

func main() {
	cmd.Execute()
}
