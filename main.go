package main

import "github.com/theirongolddev/feaso/cmd"

func main() {
	cmd.Execute()
}
