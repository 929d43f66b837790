package main

import "github.com/mohamedirsath07/ExpireGuard/services/worker/cli"

func main() {
	cli.Execute()
}
