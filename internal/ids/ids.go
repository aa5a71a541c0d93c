// Package ids generates resource identifiers for documents and files.
// Identifiers are short, URL-safe and unpredictable; collision
// probability is negligible at the write rates a single box sees.
package ids

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// New returns a fresh identifier. It never reads prior state, so
// concurrent calls need no coordination.
func New() string {
	id, err := gonanoid.New()
	if err != nil {
		// Only fails if the system entropy source is broken.
		panic(fmt.Sprintf("ids: generate: %v", err))
	}
	return id
}
