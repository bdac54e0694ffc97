// Command flowcrafter creates and updates GitHub Actions workflows from a
// library of reusable workflow and job templates.
package main

import "flowcrafter/internal/cli"

func main() {
	cli.Execute()
}
