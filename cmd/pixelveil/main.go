// Package main provides the entry point for the pixelveil CLI.
//
// Pixelveil finds faces in still images and irreversibly obscures them.
// It fuses candidates from several detection strategies into a
// deduplicated region list, then redacts the regions by blurring,
// pixelating, or blacking them out.
//
// Usage:
//
//	pixelveil detect photo.jpg
//	pixelveil redact --output out.jpg --method pixelate photo.jpg
//
// See --help for all available options.
package main

// main is the entry point for pixelveil.
func main() {
	Execute()
}
