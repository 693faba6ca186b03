// Package main is the entry point for querygate.
package main

func main() {
	Execute()
}
