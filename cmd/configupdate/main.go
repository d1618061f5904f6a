package main

import (
	"fmt"
	"os"

	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/ddr4869/bftconfig/orderer/update"
)

func main() {
	err := update.NewCommand().Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
