package main

import "notification-worker/cmd"

func main() {
	cmd.Execute()
}
