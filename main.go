package main

import "chromafm/cmd"

func main() {
	cmd.Execute()
}
