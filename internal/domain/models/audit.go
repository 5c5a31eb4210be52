package models

import "time"

// Audit actions emitted by the settlement client and the server.
const (
	ActionStart           = "START"
	ActionNegotiate       = "NEGOTIATE"
	ActionNetwork         = "NETWORK"
	ActionBuy             = "BUY"
	ActionTxSent          = "TX_SENT"
	ActionVerify          = "VERIFY"
	ActionWait            = "WAIT"
	ActionDelivered       = "DELIVERED"
	ActionTimeout         = "TIMEOUT"
	ActionError           = "ERROR"
	ActionPaymentRejected = "PAYMENT_REJECTED"
)

// MaxRecentLogs bounds how many entries GET /logs returns.
const MaxRecentLogs = 50

// LogEntry is one append-only audit record.
type LogEntry struct {
	Source    string    `json:"source"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
