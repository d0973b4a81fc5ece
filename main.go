package main

import (
	"github.com/distproc/pstore/cmd"
)

func main() {
	cmd.Execute()
}
