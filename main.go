package main

import "github.com/mj1618/desktop-narrator/cmd"

func main() {
	cmd.Execute()
}
