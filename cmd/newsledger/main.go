// Package main provides the entry point for the newsledger CLI.
//
// newsledger visits the configured news sources, publishes the articles
// that appeared since the last successful visit of each source, and keeps a
// ledger of those visits so that the next run starts where this one ended.
//
// Usage:
//
//	newsledger run
//	newsledger run daily weekly --interval 15m
//	newsledger ledger list
//
// See --help for all available options.
package main

func main() {
	Execute()
}
