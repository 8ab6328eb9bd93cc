package main

import "github.com/yassinsws/microsoft-agent-hackathon/internal/cli"

func main() {
	cli.Execute()
}
