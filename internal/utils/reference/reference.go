// Package reference derives the human-facing reference numbers stored on
// recharge operations, commission transfers and operations. Numbers are
// derived from caller-supplied ids, so a retried request maps onto the same
// unique value.
package reference

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Prefixes
const (
	PrefixRecharge   = "RCH"
	PrefixCommission = "COM"
	PrefixOperation  = "OPR"
)

const digestLength = 16

var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("finops.reference"))

// Recharge returns the reference of the recharge that resolves ticketID.
func Recharge(ticketID string) string {
	return derive(PrefixRecharge, ticketID)
}

// Commission returns the reference of the transfer paying transferType for
// the commission record.
func Commission(recordID, transferType string) string {
	return derive(PrefixCommission, recordID, transferType)
}

// Operation returns the reference of an operation.
func Operation(operationID string) string {
	return derive(PrefixOperation, operationID)
}

func derive(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		// Length-prefixed so ("a|b", "c") and ("a", "b|c") differ.
		b.WriteString("|" + strconv.Itoa(len(p)) + ":" + p)
	}
	id := uuid.NewSHA1(namespace, []byte(b.String()))
	digest := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return prefix + "-" + digest[:digestLength]
}
