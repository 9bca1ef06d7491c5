package main

import "github.com/variantlab/pubcounter/internal/cli"

func main() {
	cli.Execute()
}
