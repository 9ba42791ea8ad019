package main

import (
	"github.com/dbrescue/go-ibdrescue/cmd/ibdrescue/cmd"
)

func main() {
	cmd.Execute()
}
