package main

import "paperchat/internal/cli"

func main() {
	cli.Execute()
}
