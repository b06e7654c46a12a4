package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/takaotokuno/focusguard/blockguard"
	"github.com/takaotokuno/focusguard/bridge"
	"github.com/takaotokuno/focusguard/config"
	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/logging"
	"github.com/takaotokuno/focusguard/internal/timeutil"
	"github.com/takaotokuno/focusguard/notify"
	"github.com/takaotokuno/focusguard/orchestrator"
	"github.com/takaotokuno/focusguard/sound"
	"github.com/takaotokuno/focusguard/statusfile"
	"github.com/takaotokuno/focusguard/store"
	"github.com/takaotokuno/focusguard/tick"
	"github.com/takaotokuno/focusguard/timer"
)

// runAction starts the daemon: snapshot store, block guard, tick driver,
// sound controller and the HTTP bridge, then blocks until interrupted.
func runAction(_ *cli.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	log := logging.New(cfg.PathToLog)
	clock := timeutil.NewRealClock()

	db, err := store.Open(cfg.PathToDB)
	if err != nil {
		return err
	}

	defer func() {
		_ = db.Close()
	}()

	guard := blockguard.New(
		blockguard.NewHostsFile(cfg.HostsFilePath),
		blockguard.NoTabs{},
		cfg.BlockDomains,
		cfg.RedirectPath,
	)

	ctrl := sound.NewController(cfg.SoundFile, sound.NewBeepPlayer)

	var notifier notify.Notifier = notify.NewDesktop(config.IconPath(), clock, log)
	if !cfg.NotifyEnabled {
		notifier = notify.Discard{}
	}

	var orch *orchestrator.Orchestrator

	driver := tick.New(tick.Period, func() {
		orch.Tick(context.Background())
	})

	orch = orchestrator.New(orchestrator.Config{
		Clock:      clock,
		Store:      db,
		Guard:      guard,
		Tick:       driver,
		Sound:      ctrl,
		Notifier:   notifier,
		Status:     statusfile.NewWriter(cfg.PathToStatus, clock),
		SessionCmd: cfg.SessionCmd,
		Logger:     log,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if resp := orch.Recover(ctx); !resp.Success {
		log.Warn("recovering timer state", "error", resp.Error)
	}

	pterm.Info.Printfln("focusguard listening on %s", cfg.ListenAddr)

	err = bridge.New(orch, log).Serve(ctx, cfg.ListenAddr)

	_ = driver.Stop()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = ctrl.Cleanup(cleanupCtx)

	return err
}

func startAction(ctx *cli.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	minutes := ctx.Int("minutes")
	if minutes == 0 {
		minutes = cfg.DefaultTotalMins
	}

	if minutes < timer.MinTotalMinutes || minutes > timer.MaxTotalMinutes {
		return fmt.Errorf(
			"minutes must be between %d and %d",
			timer.MinTotalMinutes,
			timer.MaxTotalMinutes,
		)
	}

	resp, err := newClient(cfg.ListenAddr).send(bridge.Message{
		Type:    bridge.TypeStart,
		Minutes: &minutes,
	})
	if err != nil {
		return err
	}

	if err := reportFailure(resp); err != nil {
		return err
	}

	pterm.Success.Printfln("focus session started: %d minutes", minutes)

	return nil
}

func pauseAction(*cli.Context) error {
	return simpleClientAction(bridge.TypePause, "session paused")
}

func resumeAction(*cli.Context) error {
	return simpleClientAction(bridge.TypeResume, "session resumed")
}

func resetAction(*cli.Context) error {
	return simpleClientAction(bridge.TypeReset, "session reset, all sites unblocked")
}

func simpleClientAction(msgType, successMsg string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	resp, err := newClient(cfg.ListenAddr).send(bridge.Message{Type: msgType})
	if err != nil {
		return err
	}

	if err := reportFailure(resp); err != nil {
		return err
	}

	pterm.Success.Println(successMsg)

	return nil
}

// statusAction asks the daemon for fresh state, falling back to the status
// file when the daemon is not running.
func statusAction(*cli.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	resp, err := newClient(cfg.ListenAddr).send(bridge.Message{
		Type: bridge.TypeUpdate,
	})
	if err != nil {
		if !errors.Is(err, errDaemonUnreachable) {
			return err
		}

		return statusFromFile(cfg.PathToStatus)
	}

	if err := reportFailure(resp); err != nil {
		return err
	}

	printStatus(
		resp.Mode,
		resp.SessionType,
		resp.TotalRemaining,
		resp.SessionRemaining,
	)

	return nil
}

func statusFromFile(path string) error {
	s, err := statusfile.Read(path)
	if err != nil {
		return err
	}

	if s == nil {
		pterm.Info.Println("no timer is running")

		return nil
	}

	pterm.Info.Printfln("daemon not running; last known state from %s",
		s.UpdatedAt.Format("Jan 02, 2006 03:04:05 PM"))
	printStatus(s.Mode, s.SessionType, s.TotalRemaining, s.SessionRemaining)

	return nil
}

func printStatus(
	mode timer.Mode,
	sessType timer.SessionType,
	totalRemaining, sessionRemaining int64,
) {
	label := "Break"
	if sessType == timer.Work {
		label = "Work"
	}

	switch mode {
	case timer.Setup:
		pterm.Info.Println("no timer is running")
	case timer.Completed:
		pterm.Success.Println("session completed!")
	default:
		pterm.Printfln("[%s] %s in session, %s total (%s)",
			mode,
			timeutil.FormatMinSec(time.Duration(sessionRemaining)*time.Millisecond),
			timeutil.FormatMinSec(time.Duration(totalRemaining)*time.Millisecond),
			label,
		)
	}
}

func soundAction(ctx *cli.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	if ctx.Bool("on") && ctx.Bool("off") {
		return errors.New("--on and --off are mutually exclusive")
	}

	// Fetch the current preference so partial flags leave the rest alone.
	cl := newClient(cfg.ListenAddr)

	current, err := cl.send(bridge.Message{Type: bridge.TypeUpdate})
	if err != nil {
		return err
	}

	if err := reportFailure(current); err != nil {
		return err
	}

	enabled := current.SoundEnabled
	volume := current.SoundVolume

	if ctx.Bool("on") {
		enabled = true
	}

	if ctx.Bool("off") {
		enabled = false
	}

	if v := ctx.Int("volume"); v >= 0 {
		volume = v
	}

	resp, err := cl.send(bridge.Message{
		Type:         bridge.TypeSoundSave,
		SoundEnabled: &enabled,
		SoundVolume:  &volume,
	})
	if err != nil {
		return err
	}

	if err := reportFailure(resp); err != nil {
		return err
	}

	state := "off"
	if enabled {
		state = "on"
	}

	pterm.Success.Printfln("sound %s, volume %d", state, volume)

	return nil
}

// reportFailure turns a fatal response into an error and prints warnings
// without failing: the primary outcome was achieved.
func reportFailure(resp *orchestrator.Response) error {
	if resp.Success {
		return nil
	}

	if resp.Severity == apperr.Warning {
		pterm.Warning.Println(resp.Error)

		return nil
	}

	return errors.New(resp.Error)
}
