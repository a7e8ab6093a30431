package main

import (
	"fmt"

	"github.com/ternarybob/peto/internal/common"
)

func printVersion() {
	fmt.Printf("Peto version %s\n", common.LoadVersionFromFile())
}
