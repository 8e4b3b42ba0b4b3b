package main

import "github.com/vietddude/netfailover/internal/cli"

func main() {
	cli.Execute()
}
