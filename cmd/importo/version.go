package main

import (
	"fmt"

	"github.com/ternarybob/importo/internal/common"
)

// printVersion handles the -version flag.
func printVersion() {
	fmt.Printf("Importo version %s\n", common.GetFullVersion())
}
