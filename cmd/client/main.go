package main

import "github.com/dmitrijs2005/docstore/internal/client/cli"

func main() {
	cli.Execute()
}
