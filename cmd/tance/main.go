package main

import (
	"os"

	"github.com/classam/redis-tance/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
