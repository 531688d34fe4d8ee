package main

import "obdmeter/cmd"

func main() {
	cmd.Execute()
}
