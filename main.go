package main

import (
	"backoffice.GO/cmd"
	"backoffice.GO/config"
)

func main() {
	config.LoadEnv()
	cmd.Execute()
}
