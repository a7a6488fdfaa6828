package main

import "github.com/KaramelBytes/voltlens/cmd"

func main() {
	cmd.Execute()
}
