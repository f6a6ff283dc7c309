package main

import "github.com/sumwatshade/tidevalve/cmd"

func main() {
	cmd.Execute()
}
