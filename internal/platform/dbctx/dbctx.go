// Package dbctx carries the per-call database scope handed to repos.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context pairs the request context with an optional transaction handle.
// A nil Tx means the repo runs the call on its own connection; setting Tx
// lets a caller group several repo calls into one transaction without the
// repos knowing about each other.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
