package main

import "github.com/ppcsplit/ppcsplit/cmd"

func main() {
	cmd.Execute()
}
