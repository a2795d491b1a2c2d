package main

import "github.com/DataDog/kafka-gateway/cmd/kafka-gateway/commands"

func main() {
	commands.Execute()
}
