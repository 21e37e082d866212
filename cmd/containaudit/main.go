package main

import (
	"os"

	"github.com/girste/containaudit/cmd/containaudit/commands"
)

func main() {
	os.Exit(commands.NewApp().Run(os.Args[1:]))
}
