// Package main (cmd/resetid) rewrites the client application's device
// identity document with freshly generated values, without touching any
// remote account. A timestamped backup of the document is kept next to
// it; when a product document path is given, its update URL is disabled
// as well.
package main
