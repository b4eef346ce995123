package main

import "github.com/javi11/archivelist/cmd/archivelist/cmd"

func main() {
	cmd.Execute()
}
