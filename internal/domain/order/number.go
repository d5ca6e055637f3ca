// internal/domain/order/number.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// orderNumberSpace namespaces the name-based UUIDs behind order numbers
var orderNumberSpace = uuid.MustParse("6f1c2b1e-5a0d-4c5e-9b8e-3d2f7a9c4e10")

// NumberFor derives the order number for a checkout session. The same
// session and day always give the same number, so a redelivered webhook
// cannot mint a second one.
func NumberFor(sessionReference string, at time.Time) string {
	id := uuid.NewSHA1(orderNumberSpace, []byte(sessionReference))
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:16])

	// Format: ORD-YYYYMMDD-XXXXXXXXXXXXXXXX, 64 bits of the hash
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), suffix)
}
