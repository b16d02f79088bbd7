package main

import "github.com/ingmarAvocado/abs-worker/internal/cli"

func main() {
	cli.Execute()
}
