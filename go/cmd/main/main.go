package main

import (
	"github.com/Tarek92l/renode-infrastructure/go/cmd"

	_ "github.com/Tarek92l/renode-infrastructure/go/cmd/run"
	_ "github.com/Tarek92l/renode-infrastructure/go/cmd/trace"
)

func main() { cmd.Main() }
