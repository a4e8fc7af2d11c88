package main

import "github.com/Quidge/streamtck/cmd"

func main() {
	cmd.Execute()
}
