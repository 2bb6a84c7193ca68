// Package main provides the entry point for rvhazard.
// rvhazard builds RISC-V pipeline hazard test programs and the expectation
// files a test bench checks them against.
//
// For the full CLI, use: go run ./cmd/rvhazard
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvhazard - RISC-V pipeline hazard test builder")
	fmt.Println("")
	fmt.Println("Usage: rvhazard [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to configuration JSON file")
	fmt.Println("  -suite       Comma-separated YAML suite files to build")
	fmt.Println("  -out         Directory to write artifacts to (default: build)")
	fmt.Println("  -check       Self-check every program on the golden model")
	fmt.Println("  -only        Comma-separated sequence names to build")
	fmt.Println("  -no-catalog  Do not build the built-in sequences")
	fmt.Println("  -list        List the built-in sequences")
	fmt.Println("  -disasm      Disassemble an artifact")
	fmt.Println("  -run         Run an artifact on the golden model")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvhazard' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvhazard' instead.")
	}
}
