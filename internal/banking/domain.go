package banking

import (
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ledger"
)

// ChequeDirection distinguishes cheques we hold from cheques we wrote.
type ChequeDirection string

const (
	DirectionReceived ChequeDirection = "RECEIVED"
	DirectionIssued   ChequeDirection = "ISSUED"
)

// ChequeStatus enumerates the cheque lifecycle. Received cheques move
// In Hand -> Deposited -> Cleared or Returned; issued cheques move
// Issued -> Cleared or Returned.
type ChequeStatus string

const (
	ChequeInHand    ChequeStatus = "IN_HAND"
	ChequeIssued    ChequeStatus = "ISSUED"
	ChequeDeposited ChequeStatus = "DEPOSITED"
	ChequeCleared   ChequeStatus = "CLEARED"
	ChequeReturned  ChequeStatus = "RETURNED"
)

// Cheque is one entry in the cheque register.
type Cheque struct {
	Number    string
	Bank      string
	Direction ChequeDirection
	Party     string
	Amount    ledger.Money
	Date      time.Time
	Status    ChequeStatus
	VoucherID uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
