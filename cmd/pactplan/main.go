// pactplan CLI - build and execute pact matching execution plans.
package main

import (
	"github.com/pactplan/pactplan/pkg/cli"
)

func main() {
	cli.Execute()
}
