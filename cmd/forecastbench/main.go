package main

import "forecast-workbench/internal/cli"

func main() {
	cli.Execute()
}
