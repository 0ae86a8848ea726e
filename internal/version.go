// Package internal holds values shared by the executables.
package internal

// Version is the version of the smt-provider executables.
const Version = "0.1.0"
