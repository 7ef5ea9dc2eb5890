package main

import "github.com/iowarp/corebuild/cmd/corebuild/internal"

func main() {
	internal.Execute()
}
