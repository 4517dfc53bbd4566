package main

import "tracklog/internal/cli"

func main() {
	cli.Execute()
}
