package main

import "github.com/openu2f/u2fserver/cmd/u2f-demo-server/cmds"

func main() {
	cmds.Execute()
}
