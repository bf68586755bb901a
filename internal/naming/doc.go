// Package naming derives grouping keys from audiobook file names, orders
// chapter files naturally, and classifies files as audio or image.
package naming
