/*
	Copyright 2025 Gavin Postlethwaite
*/

package main

import "github.com/GavinPos/StarterDevices/cmd"

func main() {
	cmd.Execute()
}
