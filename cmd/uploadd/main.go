package main

import (
	"github.com/castkit/uploadd/cmd/uploadd/cli"
)

func main() {
	cli.ParseFlags()

	if cli.Flags.ShowVersion {
		cli.ShowVersion()
		return
	}

	cli.Serve()
}
