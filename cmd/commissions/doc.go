// Command commissions administers the commission gallery: it edits the
// character and commission catalog, regenerates image derivatives, and serves
// the admin JSON API.
package main
