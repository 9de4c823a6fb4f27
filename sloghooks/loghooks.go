// Package sloghooks implements keyvarango.Hooks over log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	keyvarango "github.com/TimMikeladze/keyv-arango"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DeleteSuppressedEvery uint64
	WriteConflictEvery    uint64
	// Log every successful provisioning (noisy with DisableCollectionCache).
	LogProvisioned bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	suppressedCtr atomic.Uint64
	conflictCtr   atomic.Uint64
}

var _ keyvarango.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Provisioned(cached bool) {
	if h.l == nil || !h.opts.LogProvisioned {
		return
	}
	h.l.Debug("keyvarango.provisioned", "cached", cached)
}

func (h *Hooks) ProvisionFailed(err error) {
	if h.l == nil {
		return
	}
	h.l.Error("keyvarango.provision_failed", "err", err)
}

func (h *Hooks) DeleteSuppressed(key string, err error) {
	if h.l == nil || !sample(h.opts.DeleteSuppressedEvery, &h.suppressedCtr) {
		return
	}
	h.l.Warn("keyvarango.delete_suppressed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("keyvarango.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) WriteConflict(key, reason string) {
	if h.l == nil || !sample(h.opts.WriteConflictEvery, &h.conflictCtr) {
		return
	}
	h.l.Info("keyvarango.write_conflict",
		"key", h.redact(key),
		"reason", reason)
}
