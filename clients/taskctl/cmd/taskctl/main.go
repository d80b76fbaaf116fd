package main

import (
	"os"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
