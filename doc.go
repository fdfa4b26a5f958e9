// Package procflux provides a game process scheduling and resource-accounting
// engine.
//
// Long-running game activities (downloads, hacks, virus scans, research)
// are modelled as processes that move through a small state machine:
// waiting, running, paused and finally completed, failed or killed. The
// engine keeps a sharded process registry indexed by server and type, a
// per-process resource ledger, a parent/child hierarchy and one completion
// timer per running process.
//
// Services:
//
//   - processor – lifecycle manager and async command dispatch
//   - executor  – run time estimation and completion timers
//   - allocator – resource ledger and admission control
//   - event     – state change notifications
//   - rest      – HTTP adapter
//
// Typical embedding:
//
//	srv, _ := procflux.New()
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	p, _ := rt.Processor().Create(ctx, &processor.CreateRequest{GatewayID: "h1", Type: "file_download"})
//	_, _ = rt.Processor().Start(ctx, p.ID)
package procflux
