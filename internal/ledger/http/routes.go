package ledgerhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the general ledger endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/ledger", func(lr chi.Router) {
		lr.Get("/accounts", h.listAccounts)
		lr.Post("/accounts", h.createAccount)
		lr.Delete("/accounts/{code}", h.deactivateAccount)
		lr.Get("/vouchers", h.listVouchers)
		lr.Post("/vouchers", h.createVoucher)
		lr.Post("/entries", h.appendEntries)
		lr.Post("/post", h.postVoucher)
		lr.Post("/void", h.voidVoucher)
		lr.Get("/trial-balance", h.trialBalance)
		lr.Get("/trial-balance/grouped", h.trialBalanceGrouped)
	})
}

func routeParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// actorFrom resolves the acting user for audit records. There is no auth
// layer, so the caller identifies itself through a header.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
