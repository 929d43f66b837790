package main

import "github.com/mohamedirsath07/ExpireGuard/services/agent/cli"

func main() {
	cli.Execute()
}
