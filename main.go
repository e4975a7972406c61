package main

import "github.com/kiesman99/arcprint/cmd"

func main() {
	cmd.Execute()
}
