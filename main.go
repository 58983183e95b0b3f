package main

import "taskmarket.com/engagement/cmd"

func main() {
	cmd.Execute()
}
