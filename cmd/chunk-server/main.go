// ABOUTME: Entry point for the local TTS chunk server
// ABOUTME: Serves a tone or audio file as a chunked websocket speech stream
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/speechplayer/internal/discovery"
	"github.com/Resonate-Protocol/speechplayer/internal/server"
	"github.com/Resonate-Protocol/speechplayer/internal/source"
)

var (
	port      = flag.Int("port", 8080, "WebSocket server port")
	path      = flag.String("path", server.DefaultPath, "Synthesis endpoint path")
	audioFile = flag.String("file", "", "Audio file to stream (WAV or raw PCM16). If not specified, plays test tone")
	toneHz    = flag.Float64("tone", 440, "Test tone frequency in Hz")
	chunkSize = flag.Int("chunk-size", source.DefaultChunkSize, "Nominal chunk size in bytes")
	interval  = flag.Duration("interval", 20*time.Millisecond, "Pause between chunks")
	irregular = flag.Bool("irregular", true, "Vary chunk sizes like network reads do")
	logFile   = flag.String("log-file", "chunk-server.log", "Log file path")
	name      = flag.String("name", "", "Server friendly name (default: hostname-chunk-server)")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(os.Stdout, f))

	log.Printf("Starting chunk server on port %d", *port)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv := server.New(server.Config{
		Port:          *port,
		Path:          *path,
		AudioFile:     *audioFile,
		ToneFrequency: *toneHz,
		Pacing: source.Pacing{
			ChunkSize: *chunkSize,
			Interval:  *interval,
			Irregular: *irregular,
		},
	})

	if !*noMDNS {
		serverName := *name
		if serverName == "" {
			hostname, err := os.Hostname()
			if err != nil {
				hostname = "unknown"
			}
			serverName = fmt.Sprintf("%s-chunk-server", hostname)
		}

		disc := discovery.NewManager(discovery.Config{
			ServiceName: serverName,
			Port:        *port,
			Path:        *path,
		})
		if err := disc.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		defer disc.Stop()
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// Start server
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}
