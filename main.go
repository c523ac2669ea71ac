package main

import "virtual-ward-intake/cmd"

func main() {
	cmd.Execute()
}
