// Package ui serves the web front of the movies demo.
//
// Every page is rendered inside the root Layout, which sets the document
// language, title and description, loads the Geist Mono font and applies the
// body theme classes around the page content. The content itself is passed
// through untouched.
//
// Start the server with the moviesdemo CLI:
//
//	moviesdemo serve --addr :3000
package ui
