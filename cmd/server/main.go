// Command server runs the signup web application.
package main

import (
	"log"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
