package main

import "github.com/jcdickinson/rundaemon/cmd"

func main() {
	cmd.Execute()
}
