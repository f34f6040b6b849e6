package main

import "FACEATTEND/cmd"

func main() {
	cmd.Execute()
}
