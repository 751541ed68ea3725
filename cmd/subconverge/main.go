package main

import "github.com/1ikeadragon/subconverge/internal/cli"

func main() {
	cli.Execute()
}
