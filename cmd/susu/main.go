package main

import "github.com/susu-network/susu/internal/cli"

func main() {
	cli.Execute()
}
