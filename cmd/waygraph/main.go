// Command waygraph runs pathfinding scenarios described in YAML.
//
//	waygraph run scenario.yaml --workers 4 --metrics
//	waygraph validate scenario.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
