package main

import "sitebooks/backend/cmd"

func main() {
	cmd.Execute()
}
