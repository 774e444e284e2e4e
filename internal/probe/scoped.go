// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// withTransientTable runs fn and then drops table, whatever fn did: returned
// an error, timed out or panicked. The drop gets a fresh deadline detached
// from ctx so an expired probe still cleans up. Drop failures are logged and
// never returned; the caller only sees fn's error.
//
// If the drop itself fails the table is left behind. That is accepted; the
// name is unique per run so a leftover never collides with a later run.
func (p *Prober) withTransientTable(ctx context.Context, table TableRef, fn func(context.Context) error) error {
	defer func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.CleanupTimeout)
		defer cancel()

		err := p.wh.DeleteTable(cctx, table)
		switch {
		case err == nil, errors.Is(err, ErrNotFound):
			p.log.Debug("transient table dropped", zap.String("table", table.String()))
		default:
			p.log.Warn("transient table cleanup failed",
				zap.String("table", table.String()),
				zap.Error(err),
			)
		}
	}()

	return fn(ctx)
}
