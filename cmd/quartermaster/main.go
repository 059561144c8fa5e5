package main

import "github.com/quartermaster-shop/quartermaster/internal/cli"

func main() {
	cli.Execute()
}
