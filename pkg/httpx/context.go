package httpx

type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyUsername  ctxKey = "username"
)
