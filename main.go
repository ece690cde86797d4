package main

import "github.com/kozaktomas/photo-ranker/cmd"

func main() {
	cmd.Execute()
}
