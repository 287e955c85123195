package main

import (
	"github.com/catsched/cats/cmd/cats"
)

func main() {
	cats.Execute()
}
