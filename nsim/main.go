// Command nsim runs spiking network simulations.
package main

import "github.com/sarchlab/nsim/nsim/cmd"

func main() {
	cmd.Execute()
}
