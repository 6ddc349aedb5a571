package main

import "github.com/leeschmalz/secret-hitler-role-assigner/internal/cli"

func main() {
	cli.Execute()
}
