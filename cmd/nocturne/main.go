package main

import "github.com/tessro/nocturne/internal/cli"

func main() {
	cli.Execute()
}
