// Package textutil provides the small string helpers shared by staging,
// placement and tagging: filesystem-safe names, separator normalization,
// title casing and the "Unknown" sentinel check.
package textutil
