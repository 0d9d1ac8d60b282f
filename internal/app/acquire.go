package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
	"github.com/relabs-tech/ringdrop/internal/analysis"
	"github.com/relabs-tech/ringdrop/internal/config"
	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/sensors"
	"github.com/relabs-tech/ringdrop/internal/telemetry"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

// AcquireOptions selects what an acquisition run does.
type AcquireOptions struct {
	Dir    string // where trial files go
	RingID string

	After int // single mode: last run already on disk
	Count int // single mode: trials to add

	Rotations int // series mode: rotations of BLOCK_SIZE trials

	Analyze bool // run the analysis once all trials are in
}

// rig is the open apparatus plus its optional side channels.
type rig struct {
	port      io.Closer
	device    *acquisition.Device
	publisher *telemetry.Publisher
	display   *Display
	env       *sensors.HostEnv
}

func portOptions(cfg *config.Config) acquisition.PortOptions {
	return acquisition.PortOptions{
		PortName:    cfg.SerialPort,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
		SettleDelay: time.Duration(cfg.SettleDelayMs) * time.Millisecond,
	}
}

func openRig(cfg *config.Config) (*rig, error) {
	port, err := acquisition.OpenPort(portOptions(cfg))
	if err != nil {
		return nil, err
	}
	r := &rig{port: port, device: acquisition.NewDevice(port, cfg.MaxReadAttempts)}

	if cfg.MQTTBroker != "" {
		pub, err := telemetry.Connect(telemetry.Options{
			Broker:       cfg.MQTTBroker,
			ClientID:     cfg.MQTTClientIDAcquire,
			TopicTrial:   cfg.TopicTrial,
			TopicSummary: cfg.TopicSummary,
		})
		if err != nil {
			// telemetry is optional; keep acquiring without it
			log.Printf("acquire: MQTT disabled: %v", err)
		} else {
			r.publisher = pub
		}
	}

	if cfg.DisplayEnabled {
		d, err := OpenDisplay(cfg.DisplayI2CBus)
		if err != nil {
			log.Printf("acquire: display disabled: %v", err)
		} else {
			r.display = d
		}
	}

	if cfg.EnvSensorI2CBus != "" {
		r.env = sensors.NewHostEnv(cfg.EnvSensorI2CBus, cfg.EnvSensorI2CAddr)
	}
	return r, nil
}

func (r *rig) session(dir, base string) *acquisition.Session {
	s := &acquisition.Session{Device: r.device, Dir: dir, Base: base}
	if r.env != nil {
		s.Env = r.env
	}
	if r.publisher != nil {
		s.Observers = append(s.Observers, r.publisher)
	}
	if r.display != nil {
		s.Observers = append(s.Observers, r.display)
	}
	return s
}

func (r *rig) finish(res *analysis.Result) {
	if r.publisher != nil {
		if err := r.publisher.PublishSummary(res); err != nil {
			log.Printf("acquire: publish summary: %v", err)
		}
	}
	if r.display != nil {
		r.display.ShowResult(res)
	}
}

func (r *rig) Close() {
	if r.publisher != nil {
		r.publisher.Close()
	}
	if r.display != nil {
		r.display.Close()
	}
	if r.env != nil {
		r.env.Close()
	}
	if err := r.port.Close(); err != nil {
		log.Printf("acquire: closing serial port: %v", err)
	}
	log.Println("acquire: serial port closed")
}

// RunAcquire adds o.Count trials after run o.After and optionally analyses the
// whole directory.
func RunAcquire(ctx context.Context, cfg *config.Config, o AcquireOptions, out io.Writer) error {
	if o.Count < 1 {
		return errors.Wrapf(errs.ErrConfiguration, "number of new tests must be >= 1, got %d", o.Count)
	}
	if o.After < 0 {
		return errors.Wrapf(errs.ErrConfiguration, "last existing test must be >= 0, got %d", o.After)
	}

	return acquireWith(ctx, cfg, o, out, func(s *acquisition.Session) error {
		return s.Acquire(ctx, o.After, o.After+o.Count)
	})
}

// RunSeries acquires o.Rotations × BLOCK_SIZE trials, asking the operator to
// turn the ring between rotations.
func RunSeries(ctx context.Context, cfg *config.Config, o AcquireOptions, in io.Reader, out io.Writer) error {
	if o.Rotations < 1 {
		return errors.Wrapf(errs.ErrConfiguration, "rotations must be >= 1, got %d", o.Rotations)
	}

	return acquireWith(ctx, cfg, o, out, func(s *acquisition.Session) error {
		return s.RunSeries(ctx, cfg.BlockSize, o.Rotations, EnterPause(in, out))
	})
}

func acquireWith(ctx context.Context, cfg *config.Config, o AcquireOptions, out io.Writer, run func(*acquisition.Session) error) error {
	if o.RingID == "" {
		o.RingID = "test"
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	r, err := openRig(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	base := trial.BaseName(time.Now(), o.RingID)
	if err := run(r.session(o.Dir, base)); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nAll tests completed.")

	if !o.Analyze {
		return nil
	}
	res, err := RunAnalysis(o.Dir, o.RingID, AnalysisOptions(cfg), out)
	if err != nil {
		return err
	}
	r.finish(res)
	return nil
}

// EnterPause rings the terminal bell and waits for Enter on in.
func EnterPause(in io.Reader, out io.Writer) acquisition.PauseFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, rotation, rotations int) error {
		fmt.Fprintf(out, "\a\nRotation %d/%d done, turn the ring and press Enter to continue ...", rotation, rotations)

		done := make(chan error, 1)
		go func() {
			_, err := reader.ReadString('\n')
			done <- err
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err != nil && !errors.Is(err, io.EOF) {
				return errors.Wrap(err, "read operator input")
			}
			return nil
		}
	}
}

// RunDrop releases the magnet without running a test.
func RunDrop(cfg *config.Config) error {
	port, err := acquisition.OpenPort(portOptions(cfg))
	if err != nil {
		return err
	}
	defer port.Close()

	if err := acquisition.NewDevice(port, 1).Send(acquisition.CmdDrop); err != nil {
		return err
	}
	log.Println("acquire: DROP sent")
	return nil
}
