package main

import "github.com/nextlevelbuilder/memoria/cmd"

func main() {
	cmd.Execute()
}
