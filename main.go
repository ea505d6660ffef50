package main

import "github.com/drumscribe/drumscribe/cmd"

func main() {
	cmd.Execute()
}
