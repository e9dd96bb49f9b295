package main

import "github.com/maastricht-university/scribe/cli"

func main() {
	cli.Execute()
}
