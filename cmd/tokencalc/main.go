// tokencalc CLI entry point
//
// tokencalc counts the tokens in text and PDF documents under the
// cl100k_base, p50k_base and r50k_base encodings.
package main

import "github.com/jbctechsolutions/tokencalc/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
