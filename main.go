package main

import "github.com/ethpandaops/t8n-repl/cmd"

func main() {
	cmd.Execute()
}
