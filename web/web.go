// Package web holds the browser assets served by the application.
package web

import _ "embed"

// IndexHTML is the signup, login and contact page.
//
//go:embed index.html
var IndexHTML []byte
