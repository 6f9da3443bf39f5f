/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/tristendillon/dtsbundle/cmd"

func main() {
	cmd.Execute()
}
