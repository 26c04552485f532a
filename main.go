package main

import "imgzap/cmd"

func main() {
	cmd.Execute()
}
