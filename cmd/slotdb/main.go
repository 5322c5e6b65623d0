// slotdb is a small command line front end over heap files of slotted pages.
// Usage: slotdb [--home DIR] [--config FILE] <command> ...
package main

func main() {
	Execute()
}
