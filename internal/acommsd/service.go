// Package acommsd wires the transport-neutral driver, the queue manager,
// the admin control surface, and the HTTP introspection endpoint into one
// runnable service, grounded on mirage.Service/ghost.Service's
// bootstrap-then-serve shape.
package acommsd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tsaubergine/acomms/internal/admin"
	"github.com/tsaubergine/acomms/internal/config"
	"github.com/tsaubergine/acomms/internal/dccl"
	"github.com/tsaubergine/acomms/internal/driver"
	"github.com/tsaubergine/acomms/internal/driver/iridium"
	"github.com/tsaubergine/acomms/internal/observability"
	"github.com/tsaubergine/acomms/internal/queue"
	"github.com/tsaubergine/acomms/internal/queuemgr"
)

// ServiceConfig is acommsd's process-level configuration: where to load
// the acomms TOML config from and what to bind the ambient HTTP/admin
// surfaces to.
type ServiceConfig struct {
	ConfigPath      string
	HTTPListenAddr  string
	AdminListenAddr string
	CORSOrigins     []string
	DoWorkInterval  time.Duration

	// Schemas maps a DCCL message id to its compiled schema. TOML config
	// only carries scalar queue tunables (spec.md §6); the compiled
	// schema for a DCCL queue comes from generated code (cmd/dcclgen
	// output), wired in here by the operator's main package before Run.
	Schemas map[int]*dccl.CompiledSchema
}

// DefaultServiceConfig mirrors DefaultServiceConfig's shape in the
// teacher's mirage/ghost packages: sensible standalone defaults, no
// required fields.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ConfigPath:      "acommsd.toml",
		HTTPListenAddr:  ":8420",
		AdminListenAddr: ":8421",
		CORSOrigins:     []string{"http://localhost:3000"},
		DoWorkInterval:  100 * time.Millisecond,
	}
}

// Service is the running acommsd process: one driver, one queue manager,
// the admin control listener, and the HTTP introspection surface.
type Service struct {
	cfg    ServiceConfig
	loaded config.Config

	router  *gin.Engine
	manager *queuemgr.QueueManager
	drv     *iridium.Driver
	admin   *admin.Server

	appeared time.Time
}

// NewService constructs a Service from cfg without loading its
// configuration file yet (Run does that, matching bootstrap-then-serve).
func NewService(cfg ServiceConfig) *Service {
	return &Service{cfg: cfg, appeared: time.Now()}
}

// Run loads configuration, wires the driver/queue-manager/admin/HTTP
// components together, and blocks until SIGINT/SIGTERM or a component
// fails.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	loaded, err := config.Load(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("acommsd: load config: %w", err)
	}
	s.loaded = loaded

	s.manager = queuemgr.New(loaded.Driver.ModemID, s.callbacks(), nil)
	for _, q := range loaded.Queues {
		key, cfg, err := toQueueRegistration(q)
		if err != nil {
			return fmt.Errorf("acommsd: queue %s/%d: %w", q.Kind, q.ID, err)
		}
		var schema *dccl.CompiledSchema
		if key.Kind == queue.KindDCCL {
			schema = s.cfg.Schemas[key.ID]
			if schema == nil {
				return fmt.Errorf("acommsd: no compiled schema wired for dccl queue id %d", key.ID)
			}
		}
		if err := s.manager.AddQueue(key, cfg, schema); err != nil {
			return fmt.Errorf("acommsd: register queue %s/%d: %w", q.Kind, q.ID, err)
		}
	}

	imeiTable := make(map[int]string, len(loaded.Driver.ModemIDToIMEI))
	for _, entry := range loaded.Driver.ModemIDToIMEI {
		imeiTable[entry.ModemID] = entry.IMEI
	}
	s.drv = iridium.NewDriver(iridium.DriverConfig{
		Core: driver.Config{
			ModemID:                 loaded.Driver.ModemID,
			MaxFrameSize:            loaded.Driver.MaxFrameSize,
			TargetBitRateBPS:        loaded.Driver.TargetBitRateBPS,
			HandshakeHangupSeconds:  loaded.Driver.HandshakeHangupSeconds,
			HangupSecondsAfterEmpty: loaded.Driver.HangupSecondsAfterEmpty,
		},
		RUDICSListenPort:   loaded.Driver.RUDICSServerPort,
		MOSBDListenPort:    loaded.Driver.MOSBDServerPort,
		MTSBDServerAddress: loaded.Driver.MTSBDServerAddress,
		MTSBDServerPort:    loaded.Driver.MTSBDServerPort,
		ModemIDToIMEI:      imeiTable,
	}, s.driverSignals())

	s.admin = admin.NewServer(s.manager)

	observability.RegisterMetrics()
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(observability.RequestLogger(log.Logger))
	s.router.Use(observability.RequestMetricsMiddleware())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORSOrigins,
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	s.registerRoutes()

	log.Info().Int("modem_id", loaded.Driver.ModemID).Int("queues", len(loaded.Queues)).Msg("acommsd bootstrapped")
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	errCh := make(chan error, 4)

	go func() { errCh <- s.drv.Serve(ctx) }()
	go func() { errCh <- s.admin.Serve(ctx, s.cfg.AdminListenAddr) }()
	go func() { errCh <- s.serveHTTP(ctx) }()
	go func() { errCh <- s.runDoWorkLoop(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return <-errCh
	}
}

func (s *Service) serveHTTP(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.HTTPListenAddr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) runDoWorkLoop(ctx context.Context) error {
	interval := s.cfg.DoWorkInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.drv.Core().Shutdown()
			return nil
		case now := <-ticker.C:
			s.manager.DoWork(now)
			for _, err := range s.drv.Core().DoWork(now) {
				log.Warn().Err(err).Msg("driver DoWork error")
			}
		}
	}
}

func (s *Service) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.appeared).String(),
		})
	})
	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  s.manager != nil && s.drv != nil,
			"uptime": time.Since(s.appeared).String(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/queues", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"queues": s.manager.Snapshot()})
	})
	s.router.GET("/remotes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"remotes": s.drv.Core().Snapshot()})
	})
}

// callbacks are the queue manager's upcalls into this service: plain
// structured-logging hooks, matching how the teacher's own collaborators
// (ghost.Server's executors, mirage's buildlog persistence) are thin
// logging/telemetry sinks rather than further control flow.
func (s *Service) callbacks() queuemgr.Callbacks {
	return queuemgr.Callbacks{
		OnReceive: func(key queue.Key, rec dccl.Record, frame []byte) {
			log.Debug().Str("queue", key.String()).Int("bytes", len(frame)).Msg("dccl record received")
		},
		OnReceiveCCL: func(key queue.Key, frame []byte) {
			log.Debug().Str("queue", key.String()).Int("bytes", len(frame)).Msg("ccl frame received")
		},
		OnAck: func(key queue.Key, msg queue.QueuedMessage) {
			observability.RecordAckRoundTrip(key.String(), time.Since(msg.QueuedAt))
		},
		OnExpire: func(key queue.Key, msg queue.QueuedMessage) {
			log.Warn().Str("queue", key.String()).Msg("queued message expired unacked")
		},
	}
}

// driverSignals wires driver.Core's upcalls to the queue manager:
// OnDataRequest asks the manager to fill an outbound packet and stamps
// ack_requested from the manager's decision, OnModifyTransmission
// defaults max_frame_bytes to the driver's max_frame_size, and OnReceive routes an inbound transmission's frame(s) or acked frame
// numbers back into the manager.
func (s *Service) driverSignals() driver.Signals {
	return driver.Signals{
		OnModifyTransmission: func(t *driver.Transmission) {
			if t.MaxFrameBytes == 0 {
				t.MaxFrameBytes = s.loaded.Driver.MaxFrameSize
			}
		},
		OnDataRequest: func(t *driver.Transmission) {
			result, err := s.manager.ProvideOutgoing(context.Background(), queuemgr.OutgoingRequest{
				Src:        t.Src,
				Dest:       t.Dest,
				FrameIndex: t.FrameStart,
				MaxBytes:   t.MaxFrameBytes,
			})
			if err != nil {
				log.Warn().Err(err).Msg("acommsd: ProvideOutgoing failed")
				return
			}
			if len(result.Frame) == 0 {
				return
			}
			t.Frames = [][]byte{result.Frame}
			t.AckRequested = result.AckRequired
			observability.RecordFrameSent("iridium", "")
		},
		OnReceive: func(t driver.Transmission) {
			switch t.Type {
			case driver.TransmissionData:
				for _, frame := range t.Frames {
					if err := s.manager.ReceiveIncoming(context.Background(), frame, t.Dest); err != nil {
						log.Warn().Err(err).Msg("acommsd: ReceiveIncoming failed")
					}
				}
				observability.RecordFrameReceived("iridium", "")
			case driver.TransmissionAck:
				for _, frame := range t.AckedFrames {
					if err := s.manager.HandleAck(uint32(frame), t.Dest); err != nil {
						log.Warn().Err(err).Msg("acommsd: HandleAck failed")
					}
				}
			}
		},
	}
}

func toQueueRegistration(q config.QueueConfig) (queue.Key, queue.Config, error) {
	var kind queue.Kind
	switch q.Kind {
	case "dccl":
		kind = queue.KindDCCL
	case "ccl":
		kind = queue.KindCCL
	default:
		return queue.Key{}, queue.Config{}, fmt.Errorf("kind %q not schedulable without a codec registration", q.Kind)
	}
	cfg := queue.Config{
		Name:                 q.Name,
		PriorityBase:         q.PriorityBase,
		PriorityTimeConstant: time.Duration(q.PriorityTimeConstantSecond * float64(time.Second)),
		MaxQueueSize:         q.MaxQueueSize,
		NewestFirst:          q.NewestFirst,
		BlackoutTime:         time.Duration(q.BlackoutSeconds * float64(time.Second)),
		TTL:                  time.Duration(q.TTLSeconds * float64(time.Second)),
		AckRequired:          q.AckRequired,
		OnDemand:             q.OnDemand,
	}
	return queue.Key{Kind: kind, ID: q.ID}, cfg, nil
}
