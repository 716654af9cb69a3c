package main

import "github.com/vibast-solutions/ms-go-course/cmd"

func main() {
	cmd.Execute()
}
