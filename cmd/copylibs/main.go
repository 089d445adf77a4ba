package main

import (
	"github.com/distroless-tools/copylibs/internal/cmd/root"
)

func main() {
	root.Execute()
}
