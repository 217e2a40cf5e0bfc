package main

import (
	"poe2-arb-scanner/internal/cli"
)

func main() {
	cli.Execute()
}
