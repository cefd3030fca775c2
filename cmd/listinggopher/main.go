package main

import "github.com/listinggopher/listinggopher/internal/cli"

func main() {
	cli.Execute()
}
