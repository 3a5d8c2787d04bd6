package main

import "civic-vote/cmd/api/cmd"

func main() {
	cmd.Execute()
}
