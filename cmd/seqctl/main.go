// Package main is the seqstore command-line tool.
package main

func main() {
	Execute()
}
