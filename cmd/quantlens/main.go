package main

import "github.com/dyike/QuantLens/internal/cli"

func main() {
	cli.Run()
}
