// Package surface provides the pixel-buffer primitives the pipeline is
// built on: decoding source files, high-quality resampling, cropping, and
// encoding back to compressed bytes.
//
// All operations work with standard Go image.Image values. Mutable
// surfaces are *image.NRGBA with bounds anchored at (0,0); Clone converts
// any decoded image into that form.
//
// Resampling uses Lanczos interpolation throughout, for the scale pyramid
// as well as the live-preview surface, so detections made on a scaled
// surface correspond closely to the original pixels.
//
// # Error Handling
//
// Decode failures wrap ErrDecode and are fatal for the operation that
// needed the surface; nothing in this package degrades partially.
package surface
