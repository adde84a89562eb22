package main

import "recital/cmd"

func main() {
	cmd.Execute()
}
