package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/config"
	"github.com/gfb107/plex-nmt-bridge/internal/gdm"
	"github.com/gfb107/plex-nmt-bridge/internal/media"
	"github.com/gfb107/plex-nmt-bridge/internal/netutil"
	"github.com/gfb107/plex-nmt-bridge/internal/nmt"
	"github.com/gfb107/plex-nmt-bridge/internal/nowplaying"
	"github.com/gfb107/plex-nmt-bridge/internal/pathmap"
	"github.com/gfb107/plex-nmt-bridge/internal/player"
	"github.com/gfb107/plex-nmt-bridge/internal/plex"
	"github.com/gfb107/plex-nmt-bridge/internal/server"
	"github.com/gfb107/plex-nmt-bridge/internal/timeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	timeout := time.Duration(cfg.PlexTimeoutMs) * time.Millisecond
	device := nmt.NewDevice(cfg.NMTAddress, cfg.NMTName, timeout, nil)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	machineID, err := device.MacAddress(bootCtx)
	if err != nil {
		log.Fatalf("cannot read device MAC address: %v", err)
	}

	serverAddr, serverPort := cfg.PlexServerAddress, cfg.PlexServerPort
	if serverAddr == "" {
		discovered, err := gdm.Discover(bootCtx, nil)
		if err != nil {
			log.Fatalf("media server discovery failed: %v", err)
		}
		serverAddr, serverPort = discovered.Address, discovered.Port
	}

	plexClient := plex.NewClient(serverAddr, serverPort, plex.Identity{
		ClientID:   machineID,
		DeviceName: cfg.NMTName,
		Product:    nmt.ProductName,
		Version:    nmt.ProductVersion,
	}, cfg.PlexToken, timeout, nil)

	lanAddress, err := netutil.LANAddress()
	if err != nil {
		log.Fatalf("cannot determine LAN address: %v", err)
	}

	rules, err := pathmap.LoadRules(bootCtx, cfg.ReplacementsPath, device, nil)
	if err != nil {
		log.Fatalf("replacement config error: %v", err)
	}
	resolver := pathmap.NewResolver(rules, device, nil)

	videos := media.NewCache(plexClient, resolver, nil)
	tracks := media.NewCache(plexClient, resolver, nil)
	registry := timeline.NewRegistry(plexClient, nil)

	listenPort, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Fatalf("invalid PORT: %v", err)
	}

	info := player.Info{
		MachineID: machineID,
		Name:      cfg.NMTName,
		Product:   nmt.ProductName,
		Version:   nmt.ProductVersion,
		Address:   lanAddress,
		Port:      listenPort,
	}

	playerService := player.NewService(device, plexClient, videos, tracks, registry, info, timeout, nil)
	handler := server.NewHandler(playerService, info)

	monitor := nowplaying.NewMonitor(device, videos, tracks, registry,
		time.Duration(cfg.NowPlayingPollMs)*time.Millisecond, nil)
	monitor.Start()

	announcer := gdm.NewAnnouncer(gdm.Identity{
		MachineID: machineID,
		Name:      cfg.NMTName,
		Port:      listenPort,
		Product:   nmt.ProductName,
		Version:   nmt.ProductVersion,
	}, time.Duration(cfg.AnnounceIntervalMs)*time.Millisecond, nil)
	announcer.Start()

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		monitor.Stop()
		announcer.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("plex-nmt-bridge %s controlling %s, server %s:%d, listening on %s",
		nmt.ProductVersion, cfg.NMTAddress, serverAddr, serverPort, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
