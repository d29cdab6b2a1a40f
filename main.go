package main

import "github.com/ValentinKolb/dSolr/cmd"

func main() {
	cmd.Execute()
}
