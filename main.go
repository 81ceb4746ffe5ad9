package main

import "github.com/rohmanhakim/site-auditor/internal/cli"

func main() {
	cli.Execute()
}
