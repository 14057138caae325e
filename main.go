package main

import "github.com/depin-orcha/orcha/cmd"

func main() {
	cmd.Execute()
}
