package main

import "github.com/philjestin/philfmt/cmd"

func main() {
	cmd.Execute()
}
