package main

import (
	"github.com/TomatoPi/5FX-Expander/internal/expander/cli"

	// Register audio drivers and synthesis engines
	_ "github.com/TomatoPi/5FX-Expander/internal/expander/audio/dummy"
	_ "github.com/TomatoPi/5FX-Expander/internal/expander/audio/jackdriver"
	_ "github.com/TomatoPi/5FX-Expander/internal/expander/synth/liquidsfz"
)

func main() {
	cli.Execute()
}
