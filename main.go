// Package main is the entry point for the tiebreaker CLI tool, which imports
// ATP match data and computes recent-form features for pairwise match
// prediction.
package main

import "github.com/pable/tiebreaker/cmd"

func main() {
	cmd.Execute()
}
