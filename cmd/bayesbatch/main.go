// cmd/bayesbatch/main.go
package main

import (
	cmd "github.com/mwiater/bayesbatch/internal/cli"
)

// executeCmd is swapped out in tests.
var executeCmd = cmd.Execute

// main starts the bayesbatch CLI by delegating to the cobra root command
// defined in the cli package.
func main() {
	executeCmd()
}
