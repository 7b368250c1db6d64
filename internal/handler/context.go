package handler

type ContextKey string

var (
	RoleCtxKey      ContextKey = "role"
	SubCtxKey       ContextKey = "sub"
	MyInfoCtx       ContextKey = "myInfo"
	SiteCtx         ContextKey = "site"
	WorkerCtx       ContextKey = "worker"
)
