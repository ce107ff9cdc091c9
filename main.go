package main

import "github.com/openglam/smithsonian-harvester/cmd"

func main() {
	cmd.Execute()
}
