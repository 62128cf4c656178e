package main

import "github.com/live-subtitle/backend/internal/cli"

func main() {
	cli.Execute()
}
