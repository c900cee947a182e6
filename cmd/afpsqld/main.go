// Command afpsqld is the AFD runtime engine entry point.
package main

import (
	"github.com/agentfirst-data/afpsql/internal/cli"
)

func main() {
	cli.Execute()
}
