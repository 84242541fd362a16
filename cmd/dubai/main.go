package main

import "github.com/americanoutlaws/dubai/cmd/dubai/cmd"

func main() {
	cmd.Execute()
}
