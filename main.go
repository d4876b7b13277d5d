package main

import (
	"os"

	"dvdmirror/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
