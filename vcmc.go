// vcmc is a dual-pane terminal file manager.
package main

import "github.com/gigimon/vcmc/cmd"

func main() {
	cmd.Main()
}
