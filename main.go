package main

import "sponup-backend/cmd"

func main() {
	cmd.Run()
}
