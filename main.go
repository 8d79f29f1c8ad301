package main

import "github.com/Juan-David1001/santishop-sub001/cmd"

func main() {
	cmd.Execute()
}
