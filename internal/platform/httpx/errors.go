package httpx

import (
	"errors"
	"net/http"

	"github.com/siamledger/siamledger/internal/ap"
	"github.com/siamledger/siamledger/internal/ar"
	"github.com/siamledger/siamledger/internal/assets"
	"github.com/siamledger/siamledger/internal/banking"
	"github.com/siamledger/siamledger/internal/budget"
	"github.com/siamledger/siamledger/internal/ledger"
	"github.com/siamledger/siamledger/internal/tax"
)

// RespondError maps domain errors to RFC7807 responses. Unknown errors
// collapse to a bare 500 so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	var (
		invalidLine ledger.InvalidLineError
		unbalanced  ledger.UnbalancedVoucherError
		integrity   ledger.TrialBalanceIntegrityError
		arOverpaid  ar.OverpaymentError
		apOverpaid  ap.OverpaymentError
	)
	switch {
	case isNotFound(err):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case isConflict(err):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &invalidLine),
		errors.As(err, &unbalanced),
		errors.As(err, &arOverpaid),
		errors.As(err, &apOverpaid),
		errors.Is(err, ar.ErrNoItems),
		errors.Is(err, ap.ErrNoItems),
		errors.Is(err, banking.ErrInsufficientFunds),
		errors.Is(err, budget.ErrMonthOutOfRange):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.As(err, &integrity):
		// The books failing the debit==credit oracle is an internal fault,
		// never a client one.
		Problem(w, http.StatusInternalServerError, "Ledger Integrity", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		ledger.ErrUnknownAccount,
		ledger.ErrVoucherNotFound,
		ar.ErrCustomerNotFound,
		ar.ErrInvoiceNotFound,
		ap.ErrSupplierNotFound,
		ap.ErrOrderNotFound,
		ap.ErrInvoiceNotFound,
		banking.ErrChequeNotFound,
		assets.ErrAssetNotFound,
		tax.ErrReportNotFound,
		budget.ErrBudgetNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	for _, target := range []error{
		ledger.ErrDuplicateAccount,
		ledger.ErrAccountReferenced,
		ledger.ErrAlreadyPosted,
		ledger.ErrAlreadyVoided,
		ledger.ErrNotPosted,
		ar.ErrDuplicateID,
		ar.ErrInvalidStatus,
		ap.ErrDuplicateID,
		ap.ErrInvalidStatus,
		banking.ErrDuplicateCheque,
		banking.ErrInvalidCheque,
		assets.ErrAssetDisposed,
		tax.ErrAlreadySubmitted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
