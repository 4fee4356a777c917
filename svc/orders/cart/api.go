package cart

import (
	"encoding/json"
	"net/http"

	"encore.app/pkg/config"
	"encore.app/pkg/errs"
	"encore.app/pkg/middleware"
)

func writeError(w http.ResponseWriter, err *errs.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// rawChain wraps raw handlers with the shared security headers and the
// CORS policy read live from system_settings, so storefront browsers can
// call the cart without a same-origin proxy.
func rawChain(h http.HandlerFunc) http.Handler {
	cors := middleware.CreateDynamicCORSMiddleware(func() middleware.CORSSettingsData {
		s := config.GetSettings()
		return middleware.CORSSettingsData{
			AllowedOrigins: s.CORSAllowedOrigins,
			AllowedMethods: s.CORSAllowedMethods,
			AllowedHeaders: append(s.CORSAllowedHeaders, "X-Cart-Session"),
			MaxAge:         s.CORSMaxAge,
		}
	})
	return middleware.SecurityHeadersMiddleware(middleware.DefaultSecurityConfig)(cors(h))
}

//encore:api public raw method=GET path=/cart/raw
func GetCartRaw(w http.ResponseWriter, r *http.Request) {
	rawChain(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := &CartSessionRequest{
			SessionToken: r.Header.Get("X-Cart-Session"),
			Lang:         r.URL.Query().Get("lang"),
		}
		res, err := GetCart(ctx, req)
		if err != nil {
			writeError(w, err.(*errs.Error))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}).ServeHTTP(w, r)
}
