package main

import "relsync/cmd"

func main() {
	cmd.Execute()
}
