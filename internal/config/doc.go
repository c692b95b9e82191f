// Package config holds the run configuration built from CLI flags and the
// .newsledger sources file: which sources to crawl, how to reach them, their
// category rule tables and where the ledger lives.
package config
