package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/perchsocial/perch/internal/accounts/service"
	"github.com/perchsocial/perch/internal/accounts/store"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/jwtx"
	"github.com/perchsocial/perch/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	CredentialService *service.CredentialService
	AccessTokenTTL    time.Duration
}

func NewRouter(
	signer *jwtx.Signer,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerPasswordReset()
	r.registerSystem()
}

func (r *Router) registerAccounts() {
	registerHandler := &RegisterHandler{Credentials: r.CredentialService}
	r.Mux.Handle("POST /v1/accounts/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	loginHandler := &LoginHandler{
		Credentials: r.CredentialService,
		Signer:      r.signer,
		Issuer:      r.issuer,
		AccessTTL:   r.AccessTokenTTL,
	}
	r.Mux.Handle("POST /v1/accounts/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	changeHandler := &PasswordChangeHandler{Credentials: r.CredentialService}
	r.Mux.Handle("POST /v1/accounts/password",
		httpx.Chain(changeHandler,
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	forgotHandler := &PasswordForgotHandler{Credentials: r.CredentialService}
	r.Mux.Handle("POST /v1/accounts/password/forgot",
		httpx.Chain(forgotHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	resetHandler := &PasswordResetHandler{Credentials: r.CredentialService}
	r.Mux.Handle("POST /v1/accounts/password/reset",
		httpx.Chain(resetHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", &LivezHandler{BuildVersion: r.buildVersion, StartTime: r.startTime})
	r.Mux.Handle("GET /readyz", &ReadyzHandler{Store: r.store})
}
