// Package backend opens the mailbox described by a config.Config.
package backend

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vcmailbox/dma"
	"vcmailbox/internal/config"
	"vcmailbox/internal/mmio"
	"vcmailbox/internal/vcio"
	"vcmailbox/internal/vcsim"
	"vcmailbox/mailbox"
	"vcmailbox/trace"
)

// mailboxWindow covers the mailbox registers up to RegStatus1.
const mailboxWindow = 0x40

// Backend is an open mailbox and the resources behind it.
type Backend struct {
	Mailbox *mailbox.Mailbox
	Arena   *dma.Arena
	// Sim is set for the simulator backend.
	Sim    *vcsim.Firmware
	Tracer *trace.Tracer

	closers []func() error
}

// Open builds the backend named by cfg.Backend.
func Open(cfg *config.Config, log zerolog.Logger) (_ *Backend, err error) {
	b := &Backend{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var transport mailbox.Transport
	switch cfg.Backend {
	case config.BackendSim:
		b.Arena, err = dma.NewArena(cfg.Arena.Size, cfg.Arena.BusBase)
		if err != nil {
			return nil, err
		}
		profile := vcsim.DefaultProfile()
		if cfg.Sim.Profile != "" {
			if profile, err = vcsim.LoadProfile(cfg.Sim.Profile); err != nil {
				return nil, err
			}
		}
		b.Sim = vcsim.New(b.Arena, profile, vcsim.WithLogger(log))
		transport = mailbox.NewFIFO(b.Sim, mailbox.WithFIFOLogger(log))

	case config.BackendMMIO:
		regs, err := mmio.Open(int64(cfg.PeripheralBase)+mailbox.MailboxOffset, mailboxWindow)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, regs.Close)
		b.Arena, err = dma.Map(cfg.Arena.PhysBase, cfg.Arena.Size)
		if err != nil {
			return nil, err
		}
		transport = mailbox.NewFIFO(regs, mailbox.WithFIFOLogger(log))

	case config.BackendVCIO:
		dev, err := vcio.Open(cfg.Device)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, dev.Close)
		b.Arena, err = dma.NewArena(cfg.Arena.Size, cfg.Arena.BusBase)
		if err != nil {
			return nil, err
		}
		transport = dev

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}
	b.closers = append(b.closers, b.Arena.Close)

	opts := []mailbox.Option{
		mailbox.WithAlias(cfg.UncachedAlias),
		mailbox.WithLogger(log),
	}
	if cfg.Trace != "" {
		b.Tracer, err = trace.Create(cfg.Trace)
		if err != nil {
			return nil, fmt.Errorf("backend: open trace: %w", err)
		}
		b.closers = append(b.closers, b.Tracer.Close)
		opts = append(opts, mailbox.WithTracer(b.Tracer))
	}
	b.Mailbox = mailbox.New(transport, b.Arena, opts...)

	log.Debug().
		Str("backend", cfg.Backend).
		Uint32("arena_bus", b.Arena.BusBase()).
		Int("arena_size", b.Arena.Size()).
		Msg("mailbox ready")
	return b, nil
}

// Close releases everything Open acquired, newest first.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
