package main

import "anicat/cmd"

func main() {
	cmd.Execute()
}
