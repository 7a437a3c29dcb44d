package main

import "github.com/Natural-Intelligence/be-revisable/cmd"

func main() {
	cmd.Execute()
}
