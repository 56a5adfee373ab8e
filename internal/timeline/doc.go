// Package timeline splits a review window into fixed-length playback segments.
package timeline
