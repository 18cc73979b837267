package main

import "github.com/rawbytedev/astrophe/internal/cli"

func main() {
	cli.Execute()
}
