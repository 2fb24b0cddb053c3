// Package main is the entry point for the CMS agent gateway.
package main

func main() {
	Execute()
}
