package main

import "github.com/chorus-cloud/chorussearch/internal/cli"

func main() {
	cli.Execute()
}
