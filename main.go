package main

import "github.com/KaramelBytes/dataprep-cli/cmd"

func main() {
	cmd.Execute()
}
