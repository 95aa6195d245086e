package handlers

import (
	"capitalapi/internal/authz"
	"capitalapi/internal/chat"
	"capitalapi/internal/ledger"
	"capitalapi/internal/orgs"
	"capitalapi/internal/registry"
	"capitalapi/internal/storage"
)

// Package-level collaborators, wired from main before the router
// starts serving.
var (
	Store    storage.Store
	Registry *registry.Registry
	Authz    *authz.Engine
	Ledger   *ledger.Engine
	Orgs     *orgs.Manager
	Chat     *chat.Service
)
