// Package utils provides common utility functions for relsync.
// It includes helpers for loose type conversion and comparison of values read
// back from different SQL drivers or decoded from JSON payloads.
package utils
