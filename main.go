package main

import "github.com/sunbk201/mediagate/cmd"

func main() {
	cmd.Execute()
}
