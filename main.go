package main

import "github.com/cdurand/climatrend/cmd"

func main() {
	cmd.Execute()
}
