/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/niklasbuhl/virtual-whiteboard-backend/cmd"

func main() {
	cmd.Execute()
}
